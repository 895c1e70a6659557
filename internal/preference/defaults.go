package preference

import "path/filepath"

const (
	libraryDirName     = "Doughnut"
	devLibraryDirName  = "Doughnut_dev"
	testLibraryDirName = "Doughnut_test"
)

// Defaults maps keys to their out-of-the-box values.
type Defaults map[Key]Value

// DefaultTable builds the default values for a user whose music directory is musicDir.
func DefaultTable(musicDir string) Defaults {
	return Defaults{
		LibraryPath:         URL(FileURL(filepath.Join(musicDir, libraryDirName))),
		ReloadFrequency:     Int(60),
		SkipBackDuration:    Int(30),
		SkipForwardDuration: Int(30),
	}
}
