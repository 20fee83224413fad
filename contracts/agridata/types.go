package agridata

import (
	"go.dedis.ch/agrireg/core/access"
	"golang.org/x/xerrors"
)

// CropType is the crop a submission is about.
type CropType uint8

// DataType is the product derived from the sensor.
type DataType uint8

// SensorType is the platform that captured the data.
type SensorType uint8

// Format is the file format of the data.
type Format uint8

// The zero value of each enumeration is invalid. The parsers return it for an
// unknown input so that the validation reports it.
const (
	CropUnknown CropType = iota
	CropWheat
	CropCorn
	CropRice
	CropSoybean
)

const (
	DataTypeUnknown DataType = iota
	DataTypeNDVI
	DataTypeAerial
	DataTypeThermal
)

const (
	SensorUnknown SensorType = iota
	SensorDrone
	SensorSatellite
	SensorGround
)

const (
	FormatUnknown Format = iota
	FormatGeoJSON
	FormatTIFF
	FormatJPEG
)

var (
	cropNames   = []string{"", "wheat", "corn", "rice", "soybean"}
	dataNames   = []string{"", "ndvi", "aerial", "thermal"}
	sensorNames = []string{"", "drone", "satellite", "ground"}
	formatNames = []string{"", "geojson", "tiff", "jpeg"}
)

// ParseCropType returns the crop type of the name, or CropUnknown.
func ParseCropType(name string) CropType {
	return CropType(lookup(cropNames, name))
}

// Valid returns true if the crop type is part of the enumeration.
func (c CropType) Valid() bool {
	return c > CropUnknown && int(c) < len(cropNames)
}

// String implements fmt.Stringer.
func (c CropType) String() string {
	return nameOf(cropNames, uint8(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c CropType) MarshalText() ([]byte, error) {
	return marshalEnum(c.Valid(), c.String(), "crop type")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CropType) UnmarshalText(data []byte) error {
	*c = ParseCropType(string(data))
	return checkEnum(c.Valid(), data, "crop type")
}

// ParseDataType returns the data type of the name, or DataTypeUnknown.
func ParseDataType(name string) DataType {
	return DataType(lookup(dataNames, name))
}

// Valid returns true if the data type is part of the enumeration.
func (d DataType) Valid() bool {
	return d > DataTypeUnknown && int(d) < len(dataNames)
}

// String implements fmt.Stringer.
func (d DataType) String() string {
	return nameOf(dataNames, uint8(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d DataType) MarshalText() ([]byte, error) {
	return marshalEnum(d.Valid(), d.String(), "data type")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(data []byte) error {
	*d = ParseDataType(string(data))
	return checkEnum(d.Valid(), data, "data type")
}

// ParseSensorType returns the sensor type of the name, or SensorUnknown.
func ParseSensorType(name string) SensorType {
	return SensorType(lookup(sensorNames, name))
}

// Valid returns true if the sensor type is part of the enumeration.
func (s SensorType) Valid() bool {
	return s > SensorUnknown && int(s) < len(sensorNames)
}

// String implements fmt.Stringer.
func (s SensorType) String() string {
	return nameOf(sensorNames, uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s SensorType) MarshalText() ([]byte, error) {
	return marshalEnum(s.Valid(), s.String(), "sensor type")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SensorType) UnmarshalText(data []byte) error {
	*s = ParseSensorType(string(data))
	return checkEnum(s.Valid(), data, "sensor type")
}

// ParseFormat returns the format of the name, or FormatUnknown.
func ParseFormat(name string) Format {
	return Format(lookup(formatNames, name))
}

// Valid returns true if the format is part of the enumeration.
func (f Format) Valid() bool {
	return f > FormatUnknown && int(f) < len(formatNames)
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return nameOf(formatNames, uint8(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return marshalEnum(f.Valid(), f.String(), "format")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(data []byte) error {
	*f = ParseFormat(string(data))
	return checkEnum(f.Valid(), data, "format")
}

// Coordinates is a geographic position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Fields are the values provided to register a new entry.
type Fields struct {
	DataHash    string
	Metadata    string
	Location    string
	CropType    CropType
	CaptureDate int64
	Price       int64
	DataType    DataType
	Resolution  int64
	Coordinates Coordinates
	SensorType  SensorType
	Format      Format
}

// DataEntry is a registered submission. Only the metadata, the price and the
// timestamp change after the registration.
type DataEntry struct {
	ID          uint64           `json:"id"`
	DataHash    string           `json:"dataHash"`
	Metadata    string           `json:"metadata"`
	Location    string           `json:"location"`
	CropType    CropType         `json:"cropType"`
	CaptureDate int64            `json:"captureDate"`
	Price       int64            `json:"price"`
	Timestamp   uint64           `json:"timestamp"`
	Owner       access.Principal `json:"owner"`
	DataType    DataType         `json:"dataType"`
	Resolution  int64            `json:"resolution"`
	Coordinates Coordinates      `json:"coordinates"`
	SensorType  SensorType       `json:"sensorType"`
	Format      Format           `json:"format"`
	Status      bool             `json:"status"`
}

// DataUpdate is the audit record of the last update of an entry.
type DataUpdate struct {
	Metadata  string           `json:"updateMetadata"`
	Price     int64            `json:"updatePrice"`
	Timestamp uint64           `json:"updateTimestamp"`
	Updater   access.Principal `json:"updater"`
}

// Config is the configuration of the registry as stored in the ledger.
type Config struct {
	// NextID is the identifier of the next entry. It never decreases.
	NextID uint64 `json:"nextDataId"`

	// MaxEntries is the ceiling of NextID.
	MaxEntries uint64 `json:"maxDataEntries"`

	// UploadFee is the fee charged for each registration.
	UploadFee uint64 `json:"uploadFee"`

	// AuthorityContract is the recipient of the fees. It is empty until bound.
	AuthorityContract access.Principal `json:"authorityContract,omitempty"`
}

func lookup(names []string, name string) uint8 {
	for i := 1; i < len(names); i++ {
		if names[i] == name {
			return uint8(i)
		}
	}

	return 0
}

func nameOf(names []string, index uint8) string {
	if index == 0 || int(index) >= len(names) {
		return "unknown"
	}

	return names[index]
}

func marshalEnum(valid bool, name, what string) ([]byte, error) {
	if !valid {
		return nil, xerrors.Errorf("invalid %s", what)
	}

	return []byte(name), nil
}

func checkEnum(valid bool, data []byte, what string) error {
	if !valid {
		return xerrors.Errorf("unknown %s '%s'", what, data)
	}

	return nil
}
