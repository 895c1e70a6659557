//go:build darwin

package defaults

import "github.com/kalambet/doughnut/internal/preference"

func newPlatformStore(domain, _ string) (preference.Store, error) {
	return OpenDomain(domain)
}
