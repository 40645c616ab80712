package main

import (
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"

	"github.com/cuihairu/playhub/internal/telemetry"
	"github.com/cuihairu/playhub/services/portal/internal/config"
	"github.com/cuihairu/playhub/services/portal/internal/handler"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
)

var configFile = flag.String("f", "etc/portal.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c, conf.UseEnv())

	ctx, err := svc.NewServiceContext(c)
	logx.Must(err)
	defer ctx.Close()

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()

	if c.Otel.EnableTracing {
		server.Use(telemetry.HTTPMiddleware(c.Name))
	}
	handler.RegisterHandlers(server, ctx)

	fmt.Printf("Starting portal at %s:%d...\n", c.Host, c.Port)
	server.Start()
}
