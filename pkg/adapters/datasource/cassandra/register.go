package cassandra

import (
	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.KindInfo{
			Kind:        datasource.KindCassandra,
			DisplayName: "Apache Cassandra",
			Description: "Connect to Cassandra or ScyllaDB clusters over CQL",
		},
		Blocking: NewBinding(),
	})
}
