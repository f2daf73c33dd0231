package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is used when Loop.Interval is not set.
const DefaultInterval = 5 * time.Millisecond

// Loop drives the cooperative control cycle: every Interval it runs
// all controllers once, ordered by priority level, on a single goroutine.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	messages messageList
	lock     sync.Mutex

	wakeUpCh chan struct{}
	cycle    uint64
	overruns uint64
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	cycle         uint64
	priorityLevel int
	messages      messageList
}

type messageList struct {
	head *messageItem
	tail *messageItem
}

type messageItem struct {
	msg  Message
	next *messageItem
}

func (l *messageList) append(item *messageItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
}

func (l *messageList) splice(src *messageList) {
	l.head, l.tail, src.head, src.tail = src.head, src.tail, nil, nil
}

func (l *messageList) concat(lst *messageList) {
	if lst.head == nil {
		return
	}
	if l.head == nil {
		l.head = lst.head
	} else {
		l.tail.next = lst.head
	}
	l.tail = lst.tail
}

// NewLoop creates a Loop.
func NewLoop(interval time.Duration) *Loop {
	return &Loop{Interval: interval, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop. Controllers
// implementing Runnable are also started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}

	runner := NewRunnerWith(ctx).Go(l.runners...)

	interval := l.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-runner.Context.Done():
			// either ctx is done or one of the runners stopped
			if err := runner.Wait(); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return context.Canceled
		case <-ticker.C:
			l.runIteration(ctx, interval)
		case <-l.wakeUpCh:
			l.runIteration(ctx, interval)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.messages.append(&messageItem{msg: msg})
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Cycles returns the number of iterations run so far.
// It must only be called from controllers.
func (l *Loop) Cycles() uint64 {
	return l.cycle
}

// Overruns returns the number of iterations that took longer than
// the interval. It must only be called from controllers.
func (l *Loop) Overruns() uint64 {
	return l.overruns
}

// RunOnce runs a single iteration. It is used by tests and tools
// driving the loop manually.
func (l *Loop) RunOnce(ctx context.Context) {
	l.runIteration(ctx, 0)
}

func (l *Loop) runIteration(ctx context.Context, budget time.Duration) {
	l.cycle++
	iter := &loopIteration{Loop: l, ctx: ctx, time: time.Now(), cycle: l.cycle}
	l.lock.Lock()
	iter.messages.splice(&l.messages)
	l.lock.Unlock()
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		for _, ctl := range l.controllers[i] {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
	// unprocessed messages are kept for the next iteration
	if iter.messages.head != nil {
		l.lock.Lock()
		iter.messages.concat(&l.messages)
		l.messages = iter.messages
		l.lock.Unlock()
	}
	if budget > 0 {
		if elapsed := time.Since(iter.time); elapsed > budget {
			l.overruns++
			glog.V(1).Infof("cycle %d overrun: %v > %v", iter.cycle, elapsed, budget)
		}
	}
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) Cycle() uint64 {
	return t.cycle
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) Messages() MessageStore {
	return t
}

// MessageStore implementations

type messageContext struct {
	item  *messageItem
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message { return c.item.msg }
func (c *messageContext) MessageTaken()           { c.taken = true }
func (c *messageContext) StopProcessing()         { c.stop = true }

func (t *loopIteration) ProcessMessages(proc MessageProcessor) {
	var msgs, remains messageList
	msgs.splice(&t.messages)
	for msgs.head != nil {
		mctx := &messageContext{item: msgs.head}
		msgs.head = msgs.head.next
		mctx.item.next = nil
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains.append(mctx.item)
		}
		if mctx.stop {
			remains.concat(&msgs)
			break
		}
	}
	t.messages = remains
}
