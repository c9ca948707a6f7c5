package mongodb

import (
	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.KindInfo{
			Kind:        datasource.KindMongoDB,
			DisplayName: "MongoDB",
			Description: "Connect to MongoDB replica sets and standalone servers",
		},
		Blocking: NewBinding(),
	})
}
