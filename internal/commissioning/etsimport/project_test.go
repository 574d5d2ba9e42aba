package etsimport

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-etsdecode/internal/commissioning/etstest"
)

func buildFixtureProject(t *testing.T, a etstest.Archive, opts ProjectOptions) (*Project, []Warning, error) {
	t.Helper()
	dir := stageFixture(t, a)
	cat := buildMinimalCatalog(t, dir)
	return BuildProject(dir, cat, opts, nopLogger{})
}

func TestBuildProject_Minimal(t *testing.T) {
	proj, warnings, err := buildFixtureProject(t, etstest.Minimal(), ProjectOptions{})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, etstest.ProjectID, proj.ID)
	require.NotNil(t, proj.Name)
	assert.Equal(t, etstest.ProjectName, *proj.Name)
	assert.Equal(t, StyleThreeLevel, proj.GroupAddressStyle)
	assert.Equal(t, 0, proj.Installation)

	t.Run("topology", func(t *testing.T) {
		area, ok := proj.Topology[etstest.AreaID]
		require.True(t, ok, "area keyed by relative ID")
		assert.Equal(t, "1", area.PhysicalAddress)
		assert.Equal(t, "Ground floor", *area.Name)

		line, ok := area.Lines[etstest.LineID]
		require.True(t, ok)
		assert.Equal(t, "1.1", line.PhysicalAddress)
		require.NotNil(t, line.MediumType)
		assert.Equal(t, "TP", line.MediumType.Name)

		dev, ok := line.Devices[etstest.DeviceID]
		require.True(t, ok)
		assert.Equal(t, "1.1.3", dev.PhysicalAddress)
		assert.Equal(t, "Actuator", *dev.Name)
		assert.Equal(t, etstest.ProductID, *dev.ProductRefID)
		assert.Equal(t, etstest.H2PID, *dev.Hardware2ProgramRefID)
		assert.Equal(t, "0083:00000001", *dev.SerialNumber)
		assert.Equal(t, "Cabinet 1", *dev.Comment)
		assert.Nil(t, dev.Description)

		inst, ok := dev.ComObjects["O-0_R-1"]
		require.True(t, ok)
		assert.Equal(t, []string{etstest.GroupID}, inst.Links)
		assert.Equal(t, "Kitchen light", *inst.Override.Text)
		assert.True(t, *inst.Override.ReadFlag)
		assert.Nil(t, inst.Override.FunctionText, "device tier is not merged")
	})

	t.Run("locations", func(t *testing.T) {
		root, ok := proj.Locations[etstest.RootID]
		require.True(t, ok)
		assert.Equal(t, BuildingPartBuilding, root.Type)
		assert.Empty(t, root.Devices)

		room, ok := root.Spaces[etstest.RoomID]
		require.True(t, ok)
		assert.Equal(t, BuildingPartRoom, room.Type)
		assert.Equal(t, "0.1", *room.Number)
		require.NotNil(t, room.Usage)
		assert.Equal(t, "Living Area", room.Usage.Text)
		assert.Equal(t, []string{etstest.DeviceID}, room.Devices)
		assert.Empty(t, room.Spaces)
	})

	t.Run("group addresses", func(t *testing.T) {
		require.Len(t, proj.GroupAddresses, 1)
		ga, ok := proj.GroupAddresses[etstest.GroupID]
		require.True(t, ok)
		assert.Equal(t, 2307, *ga.Raw)
		assert.Equal(t, "1/1/3", ga.Address)
		assert.Equal(t, "Kitchen light", *ga.Name)
		require.NotNil(t, ga.DatapointType)
		assert.Equal(t, "DPT_Switch", ga.DatapointType.Name)
	})
}

func TestBuildProject_GroupAddressStyles(t *testing.T) {
	tests := []struct {
		style string
		want  string
	}{
		{"ThreeLevel", "1/1/3"},
		{"TwoLevel", "1/259"},
		{"Free", "2307"},
	}

	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			a := etstest.Minimal()
			a.Projects[0].Members["project.xml"] = strings.ReplaceAll(etstest.ProjectXML,
				`GroupAddressStyle="ThreeLevel"`, `GroupAddressStyle="`+tt.style+`"`)

			proj, _, err := buildFixtureProject(t, a, ProjectOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, proj.GroupAddresses[etstest.GroupID].Address)
		})
	}
}

func TestBuildProject_DefaultsWhenInformationAbsent(t *testing.T) {
	a := etstest.Minimal()
	a.Projects[0].Members["project.xml"] = `<KNX><Project Id="P-0501" /></KNX>`

	proj, _, err := buildFixtureProject(t, a, ProjectOptions{})
	require.NoError(t, err)
	assert.Nil(t, proj.Name)
	assert.Equal(t, StyleThreeLevel, proj.GroupAddressStyle)
}

func TestBuildProject_NestedGroupRangesAnyDepth(t *testing.T) {
	groups := `
<GroupRange Id="P-0501-0_GR-1">
  <GroupAddress Id="P-0501-0_GA-1" Address="1" />
  <GroupRange Id="P-0501-0_GR-2">
    <GroupRange Id="P-0501-0_GR-3">
      <GroupAddress Id="P-0501-0_GA-2" Address="2" DatapointType="DPST-99-1 DPST-5-1" />
    </GroupRange>
  </GroupRange>
</GroupRange>
<GroupAddress Id="P-0501-0_GA-3" />`

	proj, warnings, err := buildFixtureProject(t, withInstallation(installation("", "", groups)), ProjectOptions{})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, proj.GroupAddresses, 3)
	assert.Equal(t, "0/0/1", proj.GroupAddresses["GA-1"].Address)
	assert.Equal(t, "DPST-5-1", proj.GroupAddresses["GA-2"].DatapointType.ID, "first resolvable entry")
	assert.Equal(t, "?", proj.GroupAddresses["GA-3"].Address)
	assert.Nil(t, proj.GroupAddresses["GA-3"].Raw)
}

func TestBuildProject_Warnings(t *testing.T) {
	locations := `
<Space Id="P-0501-0_BP-1" Type="Room" Usage="SU-99">
  <DeviceInstanceRef RefId="P-0501-0_DI-404" />
</Space>`
	groups := `<GroupAddress Id="P-0501-0_GA-1" Address="1" DatapointType="DPST-99-99" />`

	proj, warnings, err := buildFixtureProject(t, withInstallation(installation("", locations, groups)), ProjectOptions{})
	require.NoError(t, err)

	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []string{WarnSpaceUsageUnknown, WarnDeviceRefUnknown, WarnDPTUnknown}, codes)

	assert.Nil(t, proj.Locations["BP-1"].Usage)
	assert.Equal(t, []string{"DI-404"}, proj.Locations["BP-1"].Devices)
	assert.Nil(t, proj.GroupAddresses["GA-1"].DatapointType)
}

func TestBuildProject_SegmentsAndConnectors(t *testing.T) {
	topology := `
<Area Id="P-0501-0_A-1" Address="2">
  <Line Id="P-0501-0_L-1" Address="0">
    <Segment Id="P-0501-0_S-1" MediumTypeRefId="MT-5">
      <DeviceInstance Id="P-0501-0_DI-1" Address="10">
        <ComObjectInstanceRefs>
          <ComObjectInstanceRef RefId="O-1_R-2">
            <Connectors>
              <Send GroupAddressRefId="P-0501-0_GA-2" />
              <Receive GroupAddressRefId="P-0501-0_GA-1" />
            </Connectors>
          </ComObjectInstanceRef>
        </ComObjectInstanceRefs>
      </DeviceInstance>
    </Segment>
  </Line>
  <Line Id="P-0501-0_L-2">
    <DeviceInstance Id="P-0501-0_DI-2" />
  </Line>
</Area>`

	proj, _, err := buildFixtureProject(t, withInstallation(installation(topology, "", "")), ProjectOptions{})
	require.NoError(t, err)

	area := proj.Topology["A-1"]
	line := area.Lines["L-1"]
	require.NotNil(t, line.MediumType, "medium inherited from segment")
	assert.Equal(t, "IP", line.MediumType.Name)

	dev := line.Devices["DI-1"]
	assert.Equal(t, "2.0.10", dev.PhysicalAddress)
	assert.Equal(t, []string{"GA-2", "GA-1"}, dev.ComObjects["O-1_R-2"].Links)

	bare := area.Lines["L-2"]
	assert.Nil(t, bare.MediumType)
	assert.Equal(t, "2", bare.PhysicalAddress)
	assert.Equal(t, "2", bare.Devices["DI-2"].PhysicalAddress)
	assert.Nil(t, bare.Devices["DI-2"].ProductRefID)
}

func TestBuildProject_Errors(t *testing.T) {
	device := func(attrs string) string {
		return `<Area Id="P-0501-0_A-1"><Line Id="P-0501-0_L-1"><DeviceInstance Id="P-0501-0_DI-1" ` +
			attrs + ` /></Line></Area>`
	}

	tests := []struct {
		name    string
		archive func() etstest.Archive
		wantErr error
	}{
		{
			name:    "unknown product",
			archive: func() etstest.Archive { return withInstallation(installation(device(`ProductRefId="M-0083_P-X"`), "", "")) },
			wantErr: ErrUnresolvedReference,
		},
		{
			name:    "unknown hardware2program",
			archive: func() etstest.Archive { return withInstallation(installation(device(`Hardware2ProgramRefId="M-0083_HP-X"`), "", "")) },
			wantErr: ErrUnresolvedReference,
		},
		{
			name:    "invalid serial number",
			archive: func() etstest.Archive { return withInstallation(installation(device(`SerialNumber="***"`), "", "")) },
			wantErr: ErrSchemaViolation,
		},
		{
			name:    "device address out of range",
			archive: func() etstest.Archive { return withInstallation(installation(device(`Address="256"`), "", "")) },
			wantErr: ErrSchemaViolation,
		},
		{
			name: "unknown line medium",
			archive: func() etstest.Archive {
				return withInstallation(installation(`<Area Id="P-0501-0_A-1"><Line Id="P-0501-0_L-1" MediumTypeRefId="MT-9" /></Area>`, "", ""))
			},
			wantErr: ErrUnresolvedReference,
		},
		{
			name: "project information without address style",
			archive: func() etstest.Archive {
				a := etstest.Minimal()
				a.Projects[0].Members["project.xml"] = strings.ReplaceAll(etstest.ProjectXML, ` GroupAddressStyle="ThreeLevel"`, "")
				return a
			},
			wantErr: ErrSchemaViolation,
		},
		{
			name:    "missing area id",
			archive: func() etstest.Archive { return withInstallation(installation(`<Area Address="1" />`, "", "")) },
			wantErr: ErrSchemaViolation,
		},
		{
			name:    "unknown space type",
			archive: func() etstest.Archive { return withInstallation(installation("", `<Space Id="P-0501-0_BP-1" Type="Garden" />`, "")) },
			wantErr: ErrSchemaViolation,
		},
		{
			name:    "missing space type",
			archive: func() etstest.Archive { return withInstallation(installation("", `<Space Id="P-0501-0_BP-1" />`, "")) },
			wantErr: ErrSchemaViolation,
		},
		{
			name:    "group address out of range",
			archive: func() etstest.Archive { return withInstallation(installation("", "", `<GroupAddress Id="P-0501-0_GA-1" Address="65536" />`)) },
			wantErr: ErrSchemaViolation,
		},
		{
			name: "invalid group address style",
			archive: func() etstest.Archive {
				a := etstest.Minimal()
				a.Projects[0].Members["project.xml"] = strings.ReplaceAll(etstest.ProjectXML, "ThreeLevel", "FourLevel")
				return a
			},
			wantErr: ErrSchemaViolation,
		},
		{
			name: "malformed installation",
			archive: func() etstest.Archive {
				return withInstallation("<KNX><Project")
			},
			wantErr: ErrMalformedXML,
		},
		{
			name: "no installation file",
			archive: func() etstest.Archive {
				a := etstest.Minimal()
				delete(a.Projects[0].Members, "0.xml")
				return a
			},
			wantErr: ErrMalformedArchive,
		},
		{
			name: "no project",
			archive: func() etstest.Archive {
				a := etstest.Minimal()
				a.Projects = nil
				return a
			},
			wantErr: ErrMalformedArchive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := buildFixtureProject(t, tt.archive(), ProjectOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestBuildProject_Selection(t *testing.T) {
	a := etstest.Minimal()
	a.Projects[0].Members["1.xml"] = installation("", "", `<GroupAddress Id="P-0501-1_GA-7" Address="7" />`)
	a.Projects = append(a.Projects, etstest.Project{
		Name: "P-0600",
		Members: map[string]string{
			"project.xml": `<KNX><Project Id="P-0600"><ProjectInformation Name="Second" GroupAddressStyle="Free" /></Project></KNX>`,
			"0.xml":       `<KNX />`,
		},
	})
	dir := stageFixture(t, a)
	cat := buildMinimalCatalog(t, dir)

	t.Run("defaults to first project and lowest installation", func(t *testing.T) {
		proj, _, err := BuildProject(dir, cat, ProjectOptions{}, nopLogger{})
		require.NoError(t, err)
		assert.Equal(t, "P-0501", proj.ID)
		assert.Equal(t, 0, proj.Installation)
	})

	t.Run("installation index selects prefix", func(t *testing.T) {
		one := 1
		proj, _, err := BuildProject(dir, cat, ProjectOptions{Installation: &one}, nopLogger{})
		require.NoError(t, err)
		assert.Equal(t, 1, proj.Installation)
		_, ok := proj.GroupAddresses["GA-7"]
		assert.True(t, ok, "P-0501-1_ prefix stripped")
	})

	t.Run("project by id", func(t *testing.T) {
		proj, _, err := BuildProject(dir, cat, ProjectOptions{ProjectID: "P-0600"}, nopLogger{})
		require.NoError(t, err)
		assert.Equal(t, "Second", *proj.Name)
		assert.Empty(t, proj.Topology)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, _, err := BuildProject(dir, cat, ProjectOptions{ProjectID: "P-9999"}, nopLogger{})
		assert.True(t, errors.Is(err, ErrMalformedArchive))
	})

	t.Run("unknown installation", func(t *testing.T) {
		five := 5
		_, _, err := BuildProject(dir, cat, ProjectOptions{Installation: &five}, nopLogger{})
		assert.True(t, errors.Is(err, ErrMalformedArchive))
	})

	t.Run("non-numeric files ignored", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "P-0501", "01.xml"), []byte("<KNX/>"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "P-0501", "notes.xml"), []byte("<KNX/>"), 0o600))
		proj, _, err := BuildProject(dir, cat, ProjectOptions{}, nopLogger{})
		require.NoError(t, err)
		assert.Equal(t, 0, proj.Installation)
	})
}

func TestDecodeSerialNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AIMAAAAB", "0083:00000001"},
		{" AIMA\nAAAB\r\n", "0083:00000001"},
		{"AI M=", "0083"},
		{"AIM=", "0083"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := decodeSerialNumber(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := decodeSerialNumber("not base64!")
	assert.Error(t, err)
}
