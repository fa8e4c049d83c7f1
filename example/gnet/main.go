// FILE: example/gnet/main.go
package main

import (
	"github.com/lixenwraith/logpp"
	"github.com/lixenwraith/logpp/compat"
	"github.com/panjf2000/gnet/v2"
)

// Example gnet event handler
type echoServer struct {
	gnet.BuiltinEventEngine
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	c.Write(buf)
	return gnet.None
}

func main() {
	// Method 1: Simple adapter
	reg, err := logpp.NewBuilder().
		LevelString("debug").
		Sink(logpp.SinkConfig{Type: logpp.SinkFile, Target: "/var/log/gnet/gnet.log", Format: logpp.FormatJSON}).
		Build()
	if err != nil {
		panic(err)
	}
	defer reg.Shutdown()

	gnetAdapter := compat.NewStructuredGnetAdapter(reg.Logger("gnet.echo"))

	// Configure gnet server with the logger
	err = gnet.Run(
		&echoServer{},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(gnetAdapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		panic(err)
	}
}
