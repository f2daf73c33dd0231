package sh

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/way.go/pkg/control"
	"github.com/robotalks/way.go/pkg/telemetry"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	URL         string
	Timeout     time.Duration

	Shell  *ishell.Shell
	Client *Client
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	defaultTimeout = time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	serverURL  = "ws://localhost/ws"

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&LEDCmd,
		&QueryCmd,
		&WatchCmd,
	}
)

func init() {
	if val := os.Getenv("WAY_URL"); val != "" {
		serverURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&serverURL, "url", serverURL, "Websocket URL of the daemon.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(serverURL string) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		URL:         serverURL,
		Timeout:     defaultTimeout,

		Shell: ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Client == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect connects the daemon at wsURL, replacing the current connection.
func (s *Shell) Connect(wsURL string) error {
	client, err := Dial(wsURL)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Client, s.URL = client, wsURL
	prompt := wsURL
	if u, err := url.Parse(wsURL); err == nil {
		prompt = u.Host
	}
	s.Shell.SetPrompt(prompt + " > ")
	return nil
}

// Disconnect disconnects current daemon.
func (s *Shell) Disconnect() {
	if s.Client != nil {
		s.Client.Close()
		s.Client = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Print writes a message in text or JSON.
func (s *Shell) Print(c *ishell.Context, msg proto.Message) {
	if s.OutputJSON {
		text, err := telemetry.MarshalText(msg)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(text)
		return
	}
	c.Println(FormatMessage(msg))
}

// FormatMessage formats a message for display.
func FormatMessage(msg proto.Message) string {
	switch m := msg.(type) {
	case *telemetry.Orientation:
		return fmt.Sprintf("#%d roll=%.2f pitch=%.2f yaw=%.2f", m.Seq, m.Roll, m.Pitch, m.Yaw)
	case *telemetry.LEDState:
		if m.On {
			return "led on"
		}
		return "led off"
	}
	return msg.String()
}

func (s *Shell) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.URL != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.URL)
		}
		if err := s.Connect(s.URL); err != nil {
			log.Fatalf("connect %q failed: %v", s.URL, err)
		}
		defer s.Disconnect()
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ParseSwitch parses on/off arguments.
func ParseSwitch(arg string) (bool, error) {
	switch arg {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch %q, expect on or off", arg)
}

var (
	// ConnectCmd connects a daemon.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			wsURL := s.URL
			if len(c.Args) > 0 {
				wsURL = c.Args[0]
			}
			if wsURL == "" {
				c.Err(fmt.Errorf("URL expected"))
				return
			}
			if err := s.Connect(wsURL); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current daemon.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// LEDCmd switches or shows the LED.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "[on|off]",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.context()
			defer cancel()
			var level byte
			var err error
			if len(c.Args) > 0 {
				var on bool
				if on, err = ParseSwitch(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
				drain(s.Client.levels)
				if err = s.Client.SetLED(on); err == nil {
					level, err = s.Client.NextLevel(ctx)
				}
			} else {
				level, err = s.Client.LED(ctx)
			}
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, &telemetry.LEDState{Level: uint32(level), On: level == control.LevelOn})
		}),
	}

	// QueryCmd prints the latest orientation.
	QueryCmd = ishell.Cmd{
		Name:    "query",
		Aliases: []string{"q"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.context()
			defer cancel()
			o, err := s.Client.Query(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, o)
		}),
	}

	// WatchCmd prints orientation broadcasts.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[COUNT]",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			count := 10
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
				count = n
			}
			drain(s.Client.texts)
			for i := 0; i < count; i++ {
				ctx, cancel := s.context()
				o, err := s.Client.NextOrientation(ctx)
				cancel()
				if err != nil {
					c.Err(err)
					return
				}
				s.Print(c, o)
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(serverURL).WithAutoConnect(true).Run(flag.Args()...)
}
