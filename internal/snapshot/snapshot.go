// Package snapshot writes and reads zstd-compressed session snapshots.
// A snapshot is a JSON header line followed by the JSON body. The map is
// not stored; it is regenerated from Gen on load.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/hexfront/internal/game"
	"github.com/talgya/hexfront/internal/world"
)

// Version is the current snapshot format.
const Version = 1

var ErrVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version   int       `json:"version"`
	SessionID string    `json:"session_id"`
	Turn      int       `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	// Gen regenerates the map; Seed is the resolved seed.
	Gen                  world.GenConfig `json:"gen"`
	Seed                 int64           `json:"seed"`
	MinAlienBaseDistance int             `json:"min_alien_base_distance"`

	State game.State `json:"state"`
}

// Capture builds a snapshot of s. gen is the config the map was generated from.
func Capture(s *game.Session, gen world.GenConfig) SnapshotV1 {
	st := s.State()
	gen.Seed = s.Map.Seed
	gen.Width, gen.Height, gen.Orientation = s.Map.Width, s.Map.Height, s.Map.Orientation
	return SnapshotV1{
		Header: Header{
			Version:   Version,
			SessionID: st.ID,
			Turn:      st.Turn,
			CreatedAt: time.Now().UTC(),
		},
		Gen:                  gen,
		Seed:                 s.Map.Seed,
		MinAlienBaseDistance: s.MinAlienBaseDistance,
		State:                st,
	}
}

// WriteSnapshot writes snap to path, creating parent directories.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("encode body: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadHeader reads only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The body repeats the header; the line only serves ReadHeader.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode body: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("version %d: %w", snap.Header.Version, ErrVersion)
	}
	return snap, nil
}

// Restore regenerates the map and rebuilds the session.
func (snap SnapshotV1) Restore(rng *rand.Rand) (*game.Session, error) {
	gen := snap.Gen
	gen.Seed = snap.Seed
	m, err := world.Generate(gen)
	if err != nil {
		return nil, fmt.Errorf("regenerate map: %w", err)
	}
	return game.Restore(m, snap.MinAlienBaseDistance, rng, snap.State), nil
}
