package elasticsearch

import (
	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.KindInfo{
			Kind:        datasource.KindElasticsearch,
			DisplayName: "Elasticsearch",
			Description: "Connect to Elasticsearch 8.x or Elastic Cloud",
		},
		Blocking:    NewBinding(datasource.Blocking),
		NonBlocking: NewBinding(datasource.NonBlocking),
	})
}
