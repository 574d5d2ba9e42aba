package etsimport

import (
	"testing"

	"github.com/nerrad567/gray-logic-etsdecode/internal/commissioning/etstest"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// stageFixture writes a staged tree for a, as the stager would leave it.
func stageFixture(t *testing.T, a etstest.Archive) string {
	t.Helper()
	dir := t.TempDir()
	etstest.WriteStaged(t, dir, a)
	return dir
}

// withInstallation returns the minimal fixture with the installation file
// replaced.
func withInstallation(xml string) etstest.Archive {
	a := etstest.Minimal()
	a.Projects[0].Members["0.xml"] = xml
	return a
}

// installation wraps topology, locations and group address markup in an
// installation file for project P-0501.
func installation(topology, locations, groups string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<KNX xmlns="http://knx.org/xml/project/20">
  <Project Id="P-0501">
    <Installations>
      <Installation Name="">
        <Topology>` + topology + `</Topology>
        <Locations>` + locations + `</Locations>
        <GroupAddresses><GroupRanges>` + groups + `</GroupRanges></GroupAddresses>
      </Installation>
    </Installations>
  </Project>
</KNX>`
}

func buildMinimalCatalog(t *testing.T, dir string) *Catalog {
	t.Helper()
	cat, err := NewCatalogBuilder(2, nopLogger{}).Build(t.Context(), dir)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return cat
}
