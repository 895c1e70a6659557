package defaults

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/doughnut/internal/preference"
)

const exportedDomain = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>libraryPath</key>
	<string>file:///Users/me/Music/Doughnut/</string>
	<key>reloadFrequency</key>
	<integer>60</integer>
	<key>volume</key>
	<real>0.75</real>
	<key>muted</key>
	<false/>
	<key>token</key>
	<data>3q0=</data>
	<key>lastOpened</key>
	<date>2024-03-01T12:00:00Z</date>
	<key>recent</key>
	<array>
		<string>one</string>
		<integer>2</integer>
	</array>
	<key>window</key>
	<dict>
		<key>width</key>
		<integer>800</integer>
	</dict>
</dict>
</plist>
`

func TestDecodeDomain(t *testing.T) {
	got, err := decodeDomain([]byte(exportedDomain))
	if err != nil {
		t.Fatalf("decodeDomain: %v", err)
	}
	want := map[string]preference.Value{
		"libraryPath":     preference.String("file:///Users/me/Music/Doughnut/"),
		"reloadFrequency": preference.Int(60),
		"volume":          preference.Double(0.75),
		"muted":           preference.Bool(false),
		"token":           preference.Data([]byte{0xde, 0xad}),
		"lastOpened":      preference.String("2024-03-01T12:00:00Z"),
		"recent":          preference.Array([]preference.Value{preference.String("one"), preference.Int(2)}),
		"window":          preference.Dictionary(map[string]preference.Value{"width": preference.Int(800)}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decodeDomain mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDomain_Empty(t *testing.T) {
	got, err := decodeDomain(nil)
	if err != nil {
		t.Fatalf("decodeDomain: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("decodeDomain(nil) = %v, want empty", got)
	}
}

func TestDecodeDomain_Garbage(t *testing.T) {
	if _, err := decodeDomain([]byte("<plist><dict><key>x</key>")); err == nil {
		t.Error("expected error for truncated plist")
	}
}

func TestEncodePlist(t *testing.T) {
	tests := []struct {
		name string
		in   preference.Value
		want string
	}{
		{"bool", preference.Bool(true), "<true/>"},
		{"integer", preference.Int(30), "<integer>30</integer>"},
		{"double", preference.Double(1.5), "<real>1.5</real>"},
		{"string", preference.String("hi"), "<string>hi</string>"},
		{"url as string", preference.URL(preference.FileURL("/music")), "<string>file:///music</string>"},
		{"data", preference.Data([]byte{0xde, 0xad}), "<data>3q0=</data>"},
		{"strings", preference.Strings([]string{"a"}), "<array><string>a</string></array>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodePlist(tt.in)
			if err != nil {
				t.Fatalf("encodePlist: %v", err)
			}
			compact := strings.Join(strings.Fields(got), "")
			if !strings.Contains(compact, tt.want) {
				t.Errorf("encodePlist(%v) = %q, want it to contain %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPlistRoundTrip(t *testing.T) {
	in := preference.Dictionary(map[string]preference.Value{
		"skip":   preference.Int(30),
		"float":  preference.Float(0.25),
		"places": preference.Strings([]string{"a", "b"}),
		"home":   preference.URL(preference.FileURL("/music")),
	})
	encoded, err := encodePlist(in)
	if err != nil {
		t.Fatalf("encodePlist: %v", err)
	}
	got, err := decodeDomain([]byte(encoded))
	if err != nil {
		t.Fatalf("decodeDomain: %v", err)
	}

	// The property list type system has no float, URL or string-array kinds.
	want := map[string]preference.Value{
		"skip":   preference.Int(30),
		"float":  preference.Double(0.25),
		"places": preference.Array([]preference.Value{preference.String("a"), preference.String("b")}),
		"home":   preference.String("file:///music"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromPlist_Unsupported(t *testing.T) {
	_, err := fromPlist(struct{}{})
	if !errors.Is(err, preference.ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
}
