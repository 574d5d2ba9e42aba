// Package etstest builds small ETS project archives for tests.
//
// Minimal returns a complete archive: master data with two datapoint
// families, one manufacturer with one application program (two
// communication objects and two program-level overrides), and an
// encrypted project container holding one device, one group address and
// a two-level space tree.
package etstest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/yeka/zip"
)

// Identifiers used by the Minimal fixture.
const (
	Password = "correct horse"

	ProjectID      = "P-0501"
	ProjectName    = "Office"
	ManufacturerID = "M-0083"
	ProductID      = "M-0083_H-0001-1_P-AKS.2D0416.2E03"
	H2PID          = "M-0083_H-0001-1_HP-0001-10-ABCD"
	ProgramID      = "M-0083_A-0001-10-ABCD"

	SwitchRefID = ProgramID + "_O-0_R-1"
	StatusRefID = ProgramID + "_O-1_R-2"

	AreaID   = "A-1"
	LineID   = "L-1"
	DeviceID = "DI-1"
	GroupID  = "GA-1"
	RootID   = "BP-1"
	RoomID   = "BP-2"
)

// Archive describes an archive to write.
type Archive struct {
	// Members are stored unencrypted in the outer container, keyed by
	// slash-separated path.
	Members map[string]string

	// Projects become nested containers named <Name>.zip.
	Projects []Project
}

// Project is a nested project container.
type Project struct {
	Name string

	// Password encrypts every member with AES-256; empty stores them plain.
	Password string

	Members map[string]string
}

// Write creates the archive at path.
func Write(t testing.TB, path string, a Archive) {
	t.Helper()

	outer := map[string][]byte{}
	for name, content := range a.Members {
		outer[name] = []byte(content)
	}
	for _, p := range a.Projects {
		outer[p.Name+".zip"] = zipBytes(t, p.Members, p.Password)
	}

	data := zipRaw(t, outer)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("creating fixture directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing fixture archive: %v", err)
	}
}

// WriteMinimal writes Minimal() to dir/<name>.knxproj and returns the path.
func WriteMinimal(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name+".knxproj")
	Write(t, path, Minimal())
	return path
}

func zipBytes(t testing.TB, members map[string]string, password string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range sortedKeys(members) {
		var (
			fw  io.Writer
			err error
		)
		if password != "" {
			fw, err = w.Encrypt(name, password, zip.AES256Encryption)
		} else {
			fw, err = w.Create(name)
		}
		if err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(members[name])); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing container: %v", err)
	}
	return buf.Bytes()
}

func zipRaw(t testing.TB, members map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
		if _, err := fw.Write(members[name]); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteStaged lays a out in dir as the stager would leave it, without
// building any container: outer members as files, each project as a
// directory. Pruning is not applied.
func WriteStaged(t testing.TB, dir string, a Archive) {
	t.Helper()

	write := func(name, content string) {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("creating %s: %v", filepath.Dir(name), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	for _, name := range sortedKeys(a.Members) {
		write(name, a.Members[name])
	}
	for _, p := range a.Projects {
		for _, name := range sortedKeys(p.Members) {
			write(p.Name+"/"+name, p.Members[name])
		}
	}
}
