//go:build !darwin

package defaults

import "github.com/kalambet/doughnut/internal/preference"

func newPlatformStore(_, path string) (preference.Store, error) {
	return OpenFile(path)
}
