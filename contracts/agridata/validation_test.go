package agridata

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_Accepted(t *testing.T) {
	err := Validate(makeConfig(), makeFields("abc"))
	require.NoError(t, err)
}

func TestValidate_Boundaries(t *testing.T) {
	type testCase struct {
		name   string
		change func(*Fields)
		err    error
	}

	cases := []testCase{
		{"hash empty", func(f *Fields) { f.DataHash = "" }, ErrInvalidDataHash},
		{"hash max", func(f *Fields) { f.DataHash = strings.Repeat("a", 64) }, nil},
		{"hash too long", func(f *Fields) { f.DataHash = strings.Repeat("a", 65) }, ErrInvalidDataHash},
		{"metadata empty", func(f *Fields) { f.Metadata = "" }, ErrInvalidMetadata},
		{"metadata max", func(f *Fields) { f.Metadata = strings.Repeat("m", 500) }, nil},
		{"metadata too long", func(f *Fields) { f.Metadata = strings.Repeat("m", 501) }, ErrInvalidMetadata},
		{"metadata runes", func(f *Fields) { f.Metadata = strings.Repeat("é", 500) }, nil},
		{"location empty", func(f *Fields) { f.Location = "" }, ErrInvalidLocation},
		{"location max", func(f *Fields) { f.Location = strings.Repeat("l", 100) }, nil},
		{"location too long", func(f *Fields) { f.Location = strings.Repeat("l", 101) }, ErrInvalidLocation},
		{"crop unknown", func(f *Fields) { f.CropType = ParseCropType("barley") }, ErrInvalidCropType},
		{"crop out of range", func(f *Fields) { f.CropType = CropType(42) }, ErrInvalidCropType},
		{"capture date zero", func(f *Fields) { f.CaptureDate = 0 }, ErrInvalidCaptureDate},
		{"capture date negative", func(f *Fields) { f.CaptureDate = -5 }, ErrInvalidCaptureDate},
		{"capture date one", func(f *Fields) { f.CaptureDate = 1 }, nil},
		{"price zero", func(f *Fields) { f.Price = 0 }, nil},
		{"price negative", func(f *Fields) { f.Price = -1 }, ErrInvalidPrice},
		{"data type unknown", func(f *Fields) { f.DataType = ParseDataType("lidar") }, ErrInvalidDataType},
		{"resolution zero", func(f *Fields) { f.Resolution = 0 }, ErrInvalidResolution},
		{"resolution one", func(f *Fields) { f.Resolution = 1 }, nil},
		{"resolution max", func(f *Fields) { f.Resolution = 10000 }, nil},
		{"resolution too high", func(f *Fields) { f.Resolution = 10001 }, ErrInvalidResolution},
		{"lat max", func(f *Fields) { f.Coordinates.Lat = 90 }, nil},
		{"lat min", func(f *Fields) { f.Coordinates.Lat = -90 }, nil},
		{"lat too high", func(f *Fields) { f.Coordinates.Lat = 90.0001 }, ErrInvalidCoordinates},
		{"lat too low", func(f *Fields) { f.Coordinates.Lat = -90.0001 }, ErrInvalidCoordinates},
		{"lon max", func(f *Fields) { f.Coordinates.Lon = 180 }, nil},
		{"lon too high", func(f *Fields) { f.Coordinates.Lon = 180.0001 }, ErrInvalidCoordinates},
		{"lon too low", func(f *Fields) { f.Coordinates.Lon = -180.0001 }, ErrInvalidCoordinates},
		{"lat NaN", func(f *Fields) { f.Coordinates.Lat = math.NaN() }, ErrInvalidCoordinates},
		{"sensor unknown", func(f *Fields) { f.SensorType = ParseSensorType("") }, ErrInvalidSensorType},
		{"format unknown", func(f *Fields) { f.Format = ParseFormat("png") }, ErrInvalidDataFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := makeFields("abc")
			tc.change(&fields)

			err := Validate(makeConfig(), fields)
			if tc.err == nil {
				require.NoError(t, err)
			} else {
				require.Equal(t, tc.err, err)
			}
		})
	}
}

func TestValidate_Capacity(t *testing.T) {
	cfg := makeConfig()
	cfg.MaxEntries = 1
	cfg.NextID = 1

	// The capacity is checked before anything else.
	err := Validate(cfg, Fields{})
	require.Equal(t, ErrMaxEntriesExceeded, err)

	cfg.NextID = 0
	require.NoError(t, Validate(cfg, makeFields("abc")))
}

func TestValidate_Order(t *testing.T) {
	fields := makeFields("")
	fields.Metadata = ""
	fields.Format = FormatUnknown

	err := Validate(makeConfig(), fields)
	require.Equal(t, ErrInvalidDataHash, err)

	fields.DataHash = "abc"
	err = Validate(makeConfig(), fields)
	require.Equal(t, ErrInvalidMetadata, err)

	fields = makeFields("abc")
	fields.CropType = CropUnknown
	fields.Price = -1
	fields.SensorType = SensorUnknown

	err = Validate(makeConfig(), fields)
	require.Equal(t, ErrInvalidCropType, err)

	fields.CropType = CropRice
	err = Validate(makeConfig(), fields)
	require.Equal(t, ErrInvalidPrice, err)

	fields.Price = 1
	err = Validate(makeConfig(), fields)
	require.Equal(t, ErrInvalidSensorType, err)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeConfig() Config {
	return Config{
		MaxEntries: DefaultMaxEntries,
		UploadFee:  DefaultUploadFee,
	}
}

func makeFields(hash string) Fields {
	return Fields{
		DataHash:    hash,
		Metadata:    "NDVI survey of the north field",
		Location:    "Iowa, US",
		CropType:    CropCorn,
		CaptureDate: 1650000000,
		Price:       500,
		DataType:    DataTypeNDVI,
		Resolution:  10,
		Coordinates: Coordinates{Lat: 41.878, Lon: -93.097},
		SensorType:  SensorSatellite,
		Format:      FormatGeoJSON,
	}
}
