package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/robotalks/way.go/pkg/env"
	fx "github.com/robotalks/way.go/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	e := env.NewConfig().MustNewEnv()
	runner := fx.NewRunner().HandleSignals().Go(fx.NamedRun("env", fx.RunFunc(e.Run)))
	if err := runner.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalln(err)
	}
}
