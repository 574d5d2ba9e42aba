package etstest

// Minimal returns the reference fixture. Callers may modify the returned
// maps; each call builds a fresh value.
func Minimal() Archive {
	return Archive{
		Members: map[string]string{
			"knx_master.xml":                MasterXML,
			"M-0083/Hardware.xml":           HardwareXML,
			"M-0083/" + ProgramID + ".xml":  ProgramXML,
			"M-0083/Catalog.xml":            `<KNX/>`,
			"M-0083/Baggages.xml":           `<KNX/>`,
			"M-0083/Baggages/manual.pdf":    "pdf",
			"M-0083/Hardware.xml.signature": "sig",
			ProjectID + ".signature":        "sig",
			"knx_master.xml.certificate":    "cert",
		},
		Projects: []Project{{
			Name:     ProjectID,
			Password: Password,
			Members: map[string]string{
				"project.xml": ProjectXML,
				"0.xml":       InstallationXML,
			},
		}},
	}
}

// MasterXML is the global reference file.
const MasterXML = `<?xml version="1.0" encoding="utf-8"?>
<KNX xmlns="http://knx.org/xml/project/20" CreatedBy="ETS5" ToolVersion="5.7.1093.38570">
  <MasterData Version="0" Signature="AA==">
    <DatapointTypes>
      <DatapointType Id="DPT-1" Number="1" Name="1.xxx" Text="1-bit" SizeInBit="1">
        <DatapointSubtypes>
          <DatapointSubtype Id="DPST-1-1" Number="1" Name="DPT_Switch" Text="switch" Default="true" />
          <DatapointSubtype Id="DPST-1-8" Number="8" Name="DPT_UpDown" Text="up/down" />
        </DatapointSubtypes>
      </DatapointType>
      <DatapointType Id="DPT-5" Number="5" Name="5.xxx" Text="8-bit unsigned value" SizeInBit="8">
        <DatapointSubtypes>
          <DatapointSubtype Id="DPST-5-1" Number="1" Name="DPT_Scaling" Text="percentage (0..100%)" />
        </DatapointSubtypes>
      </DatapointType>
    </DatapointTypes>
    <MediumTypes>
      <MediumType Id="MT-0" Number="0" Name="TP" Text="Twisted Pair" />
      <MediumType Id="MT-5" Number="5" Name="IP" Text="KNXnet/IP (IP)" />
    </MediumTypes>
    <SpaceUsages>
      <SpaceUsage Id="SU-1" Number="1" Text="Living Area" />
    </SpaceUsages>
    <Manufacturers>
      <Manufacturer Id="M-0083" Name="MDT technologies" KnxManufacturerId="131" DefaultLanguage="de-DE" />
    </Manufacturers>
  </MasterData>
</KNX>
`

// HardwareXML declares one product and one hardware-to-program mapping.
const HardwareXML = `<?xml version="1.0" encoding="utf-8"?>
<KNX xmlns="http://knx.org/xml/project/20">
  <ManufacturerData>
    <Manufacturer RefId="M-0083">
      <Hardware>
        <Hardware Id="M-0083_H-0001-1" Name="AKS-0416.03" SerialNumber="AKS" VersionNumber="1">
          <Products>
            <Product Id="M-0083_H-0001-1_P-AKS.2D0416.2E03" Text="Switch Actuator 4-fold" OrderNumber="AKS-0416.03" IsRailMounted="true" />
          </Products>
          <Hardware2Programs>
            <Hardware2Program Id="M-0083_H-0001-1_HP-0001-10-ABCD" MediumTypes="MT-0">
              <ApplicationProgramRef RefId="M-0083_A-0001-10-ABCD" />
            </Hardware2Program>
          </Hardware2Programs>
        </Hardware>
      </Hardware>
    </Manufacturer>
  </ManufacturerData>
</KNX>
`

// ProgramXML holds two communication objects and one override of each.
// The status override names an unknown datapoint, which must be dropped.
const ProgramXML = `<?xml version="1.0" encoding="utf-8"?>
<KNX xmlns="http://knx.org/xml/project/20">
  <ManufacturerData>
    <Manufacturer RefId="M-0083">
      <ApplicationPrograms>
        <ApplicationProgram Id="M-0083_A-0001-10-ABCD" ApplicationNumber="1" ApplicationVersion="16" Name="AKS">
          <Static>
            <ComObjectTable>
              <ComObject Id="M-0083_A-0001-10-ABCD_O-0" Name="Switch" Text="Channel A" Number="0" FunctionText="Switch" ObjectSize="1 Bit" Priority="Low" ReadFlag="Disabled" WriteFlag="Enabled" CommunicationFlag="Enabled" TransmitFlag="Disabled" UpdateFlag="Disabled" ReadOnInitFlag="Disabled" DatapointType="DPST-1-1" />
              <ComObject Id="M-0083_A-0001-10-ABCD_O-1" Name="Status" Text="Channel A" Number="1" FunctionText="Status" ObjectSize="1 Bit" Priority="Low" ReadFlag="Enabled" WriteFlag="Disabled" CommunicationFlag="Enabled" TransmitFlag="Enabled" UpdateFlag="Disabled" ReadOnInitFlag="Disabled" />
            </ComObjectTable>
            <ComObjectRefs>
              <ComObjectRef Id="M-0083_A-0001-10-ABCD_O-0_R-1" RefId="M-0083_A-0001-10-ABCD_O-0" Text="Light" />
              <ComObjectRef Id="M-0083_A-0001-10-ABCD_O-1_R-2" RefId="M-0083_A-0001-10-ABCD_O-1" FunctionText="Feedback" DatapointType="DPST-1-1 DPST-99-99" />
            </ComObjectRefs>
          </Static>
        </ApplicationProgram>
      </ApplicationPrograms>
    </Manufacturer>
  </ManufacturerData>
</KNX>
`

// ProjectXML is the project descriptor.
const ProjectXML = `<?xml version="1.0" encoding="utf-8"?>
<KNX xmlns="http://knx.org/xml/project/20">
  <Project Id="P-0501">
    <ProjectInformation Name="Office" GroupAddressStyle="ThreeLevel" ProjectId="1281" />
  </Project>
</KNX>
`

// InstallationXML is installation 0. Address 2307 renders as 1/1/3.
const InstallationXML = `<?xml version="1.0" encoding="utf-8"?>
<KNX xmlns="http://knx.org/xml/project/20">
  <Project Id="P-0501">
    <Installations>
      <Installation Name="" BCUKey="4294967295" DefaultLine="P-0501-0_L-1">
        <Topology>
          <Area Id="P-0501-0_A-1" Name="Ground floor" Address="1">
            <Line Id="P-0501-0_L-1" Name="Main line" Address="1" MediumTypeRefId="MT-0">
              <DeviceInstance Id="P-0501-0_DI-1" Name="Actuator" ProductRefId="M-0083_H-0001-1_P-AKS.2D0416.2E03" Hardware2ProgramRefId="M-0083_H-0001-1_HP-0001-10-ABCD" Address="3" SerialNumber="AIMAAAAB" Comment="Cabinet 1">
                <ComObjectInstanceRefs>
                  <ComObjectInstanceRef RefId="O-0_R-1" Text="Kitchen light" ReadFlag="Enabled" Links="GA-1" />
                </ComObjectInstanceRefs>
              </DeviceInstance>
            </Line>
          </Area>
        </Topology>
        <Locations>
          <Space Id="P-0501-0_BP-1" Type="Building" Name="Office">
            <Space Id="P-0501-0_BP-2" Type="Room" Name="Kitchen" Number="0.1" Usage="SU-1">
              <DeviceInstanceRef RefId="P-0501-0_DI-1" />
            </Space>
          </Space>
        </Locations>
        <GroupAddresses>
          <GroupRanges>
            <GroupRange Id="P-0501-0_GR-1" RangeStart="2048" RangeEnd="4095" Name="Lights">
              <GroupRange Id="P-0501-0_GR-2" RangeStart="2304" RangeEnd="2559" Name="Kitchen">
                <GroupAddress Id="P-0501-0_GA-1" Address="2307" Name="Kitchen light" DatapointType="DPST-1-1" />
              </GroupRange>
            </GroupRange>
          </GroupRanges>
        </GroupAddresses>
      </Installation>
    </Installations>
  </Project>
</KNX>
`
