package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"reflect"

	"github.com/robotalks/way.go/pkg/telemetry"
	"github.com/robotalks/way.go/pkg/telemetry/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/way/"
)

func init() {
	if val := os.Getenv("WAY_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		msg, err := telemetry.DecodeTopic(topic, payload)
		switch {
		case errors.Is(err, telemetry.ErrUnknownTopic):
			log.Printf("%s: %q", topic, payload)
		case err != nil:
			log.Printf("%s: decode error: %v", topic, err)
		case msg == nil:
			log.Printf("%s: offline", topic)
		default:
			log.Printf("%s: [%s] %s", topic,
				reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg.String())
		}
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
