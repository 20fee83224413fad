package agridata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestEnums_Parse(t *testing.T) {
	require.Equal(t, CropWheat, ParseCropType("wheat"))
	require.Equal(t, CropSoybean, ParseCropType("soybean"))
	require.Equal(t, CropUnknown, ParseCropType("WHEAT"))
	require.Equal(t, CropUnknown, ParseCropType(""))

	require.Equal(t, DataTypeThermal, ParseDataType("thermal"))
	require.Equal(t, DataTypeUnknown, ParseDataType("rgb"))

	require.Equal(t, SensorGround, ParseSensorType("ground"))
	require.Equal(t, SensorUnknown, ParseSensorType(" ground"))

	require.Equal(t, FormatTIFF, ParseFormat("tiff"))
	require.Equal(t, FormatUnknown, ParseFormat("tif"))
}

func TestEnums_String(t *testing.T) {
	require.Equal(t, "rice", CropRice.String())
	require.Equal(t, "unknown", CropUnknown.String())
	require.Equal(t, "unknown", CropType(9).String())
	require.Equal(t, "aerial", DataTypeAerial.String())
	require.Equal(t, "drone", SensorDrone.String())
	require.Equal(t, "jpeg", FormatJPEG.String())
}

func TestDataEntry_JSON(t *testing.T) {
	entry := DataEntry{
		ID:         1,
		DataHash:   "abc",
		CropType:   CropWheat,
		DataType:   DataTypeNDVI,
		SensorType: SensorDrone,
		Format:     FormatGeoJSON,
		Owner:      "SP2ALICE",
		Status:     true,
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.Contains(t, string(data), `"cropType":"wheat"`)
	require.Contains(t, string(data), `"dataHash":"abc"`)
	require.Contains(t, string(data), `"owner":"SP2ALICE"`)

	var decoded DataEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, entry, decoded)

	err = json.Unmarshal([]byte(`{"cropType":"barley"}`), &decoded)
	require.EqualError(t, err, "unknown crop type 'barley'")

	entry.Format = FormatUnknown
	_, err = json.Marshal(entry)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid format")
}

func TestErrorKind(t *testing.T) {
	require.Equal(t, "invalid data hash (u101)", ErrInvalidDataHash.Error())
	require.Equal(t, uint16(118), ErrInvalidSensorType.Code())
	require.Equal(t, "unknown error (u114)", ErrorKind(114).Error())

	err := xerrors.Errorf("failed to REGISTER: %w", ErrNotOwner)

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, ErrNotOwner, kind)
	require.True(t, xerrors.Is(err, ErrNotOwner))

	_, ok = KindOf(xerrors.New("oops"))
	require.False(t, ok)
}
