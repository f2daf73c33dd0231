package telemetry

import (
	"github.com/golang/glog"

	"github.com/robotalks/way.go/pkg/telemetry/mqtt"
)

// NewBrokerQueue creates the MQTT queue for a device. The device meta
// is published retained on every connect and cleared by the will
// message when the connection drops.
func NewBrokerQueue(brokerURL string, meta *DeviceMeta) (*mqtt.Queue, error) {
	opts, prefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	metaTopic := meta.Device + "/" + TopicMeta
	payload, err := Marshal(meta)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(prefix+metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("way:" + meta.Device)
	}
	q := mqtt.NewQueue(opts, prefix)
	q.OnConnect = func(q *mqtt.Queue) {
		q.PubWith(metaTopic, payload, 1, true)
		glog.Infof("announced %s", meta.Device)
	}
	return q, nil
}
