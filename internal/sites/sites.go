// Package sites defines the job site context attached to every capture.
package sites

import (
	"fmt"
	"strings"
)

// SiteContext identifies the job site a log is being captured for. Everything
// downstream of site selection carries this context: the structuring scope,
// the rendered log header, and the synced metadata.
type SiteContext struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	PermitID  string `json:"permit_id,omitempty"`
	PortalURL string `json:"portal_url,omitempty"`
}

// Validate checks that the site carries enough identity to scope a log against.
func (s SiteContext) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("site name must not be empty")
	}
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("site address must not be empty")
	}
	return nil
}

// Label returns a single-line identifier suitable for logs and tables.
func (s SiteContext) Label() string {
	name := strings.TrimSpace(s.Name)
	addr := strings.TrimSpace(s.Address)
	if addr == "" {
		return name
	}
	return name + " (" + addr + ")"
}

// Describe renders the site identity block handed to the structuring model
// so it can distinguish this site's content from mentions of other sites.
func (s SiteContext) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Site name: %s\n", strings.TrimSpace(s.Name))
	fmt.Fprintf(&b, "Address: %s\n", strings.TrimSpace(s.Address))
	if permit := strings.TrimSpace(s.PermitID); permit != "" {
		fmt.Fprintf(&b, "Permit: %s\n", permit)
	}
	return b.String()
}
