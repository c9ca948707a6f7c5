package redis

import (
	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.KindInfo{
			Kind:        datasource.KindRedis,
			DisplayName: "Redis",
			Description: "Connect to Redis, Valkey or KeyDB",
		},
		Blocking:    NewBinding(datasource.Blocking),
		NonBlocking: NewBinding(datasource.NonBlocking),
	})
}
