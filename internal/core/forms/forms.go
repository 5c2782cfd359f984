// Package forms declares the mapping set of every form the relay accepts.
// Build the catalog once at startup with [Build] and pass it to the web layer.
package forms

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/FormRelay/internal/core"
)

// Boards holds the remote board and group ids the mapping sets point at.
type Boards struct {
	Campaigns     string
	CampaignGroup string
	Sends         string
	SendsGroup    string
	Leads         string
	LeadsGroup    string

	// Reference boards resolved by name.
	Clients    string
	Channels   string
	Formats    string
	Objectives string
	Personas   string
	Areas      string
	Products   string
}

func (b Boards) missing() []string {
	var out []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			out = append(out, name)
		}
	}
	check("campaigns", b.Campaigns)
	check("sends", b.Sends)
	check("leads", b.Leads)
	check("clients", b.Clients)
	check("channels", b.Channels)
	check("formats", b.Formats)
	check("objectives", b.Objectives)
	check("personas", b.Personas)
	check("areas", b.Areas)
	check("products", b.Products)
	return out
}

// Build returns the catalog of every form.
func Build(b Boards) (*core.Catalog, error) {
	if missing := b.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("forms: board ids not configured: %s", strings.Join(missing, ", "))
	}
	return core.NewCatalog(
		campaignRequest(b),
		contactRequest(b),
	)
}
