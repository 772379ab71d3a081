package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/ispsrc/internal/caps"
)

// PeerFile is the downstream description read from the peer caps file:
//
//	[peer]
//	caps = "video/x-raw, format=NV12, width=1280, height=720"
//
// An empty or missing caps key means there is no peer.
type PeerFile struct {
	Peer struct {
		Caps string `toml:"caps"`
	} `toml:"peer"`
}

// LoadPeerCaps reads the peer caps file at path. It returns nil caps when
// the file names none.
func LoadPeerCaps(path string) (caps.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f PeerFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ParseCapsOption(f.Peer.Caps)
}

// ParseCapsOption parses a caps option. An empty string yields nil.
func ParseCapsOption(s string) (caps.Set, error) {
	if s == "" {
		return nil, nil
	}
	set, err := caps.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid caps %q: %w", s, err)
	}
	return set, nil
}
