package app

import (
	"github.com/cleitonmarx/symbiont"

	"github.com/edibleworks/gift-concierge/internal/adapters/inbound/http"
	"github.com/edibleworks/gift-concierge/internal/adapters/outbound/catalog"
	"github.com/edibleworks/gift-concierge/internal/adapters/outbound/config"
	"github.com/edibleworks/gift-concierge/internal/adapters/outbound/log"
	"github.com/edibleworks/gift-concierge/internal/adapters/outbound/modelapi"
	"github.com/edibleworks/gift-concierge/internal/adapters/outbound/postgres"
	"github.com/edibleworks/gift-concierge/internal/adapters/outbound/timeprov"
	"github.com/edibleworks/gift-concierge/internal/telemetry"
	"github.com/edibleworks/gift-concierge/internal/tools"
	"github.com/edibleworks/gift-concierge/internal/usecases"
)

// NewConciergeApp creates and returns a new instance of the gift concierge
// application.
func NewConciergeApp(initializers ...symbiont.Initializer) *symbiont.App {
	return symbiont.NewApp().
		Initialize(initializers...).
		Initialize(
			&log.InitLogger{},
			&telemetry.InitOpenTelemetry{},
			&telemetry.InitHttpClient{},
			&config.InitVaultProvider{},
			&postgres.InitDB{},
			&postgres.InitProductIndex{},
			&timeprov.InitCurrentTimeProvider{},
			&catalog.InitSearchClient{},
			&modelapi.InitModelProvider{},
			&tools.InitToolRegistry{},

			&usecases.InitStreamChat{},
			&usecases.InitCompareProducts{},
			&usecases.InitIngestProducts{},
		).
		Host(
			&http.ConciergeServer{},
		).
		Introspect(&MermaidGraphIntrospector{})
}
