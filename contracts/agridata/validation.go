package agridata

import "unicode/utf8"

// Bounds of the fields of an entry. Lengths are counted in characters.
const (
	MaxDataHashLength = 64
	MaxMetadataLength = 500
	MaxLocationLength = 100
	MaxResolution     = 10000

	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Validate checks the fields of a candidate entry against the configuration.
// The checks run in a fixed order and the first failure is returned. It does
// not look at the state, hence it cannot detect a duplicated hash.
func Validate(cfg Config, fields Fields) error {
	if cfg.NextID >= cfg.MaxEntries {
		return ErrMaxEntriesExceeded
	}

	if !validText(fields.DataHash, MaxDataHashLength) {
		return ErrInvalidDataHash
	}

	err := validateMetadata(fields.Metadata)
	if err != nil {
		return err
	}

	if !validText(fields.Location, MaxLocationLength) {
		return ErrInvalidLocation
	}

	if !fields.CropType.Valid() {
		return ErrInvalidCropType
	}

	if fields.CaptureDate <= 0 {
		return ErrInvalidCaptureDate
	}

	err = validatePrice(fields.Price)
	if err != nil {
		return err
	}

	if !fields.DataType.Valid() {
		return ErrInvalidDataType
	}

	if fields.Resolution <= 0 || fields.Resolution > MaxResolution {
		return ErrInvalidResolution
	}

	if !fields.Coordinates.Valid() {
		return ErrInvalidCoordinates
	}

	if !fields.SensorType.Valid() {
		return ErrInvalidSensorType
	}

	if !fields.Format.Valid() {
		return ErrInvalidDataFormat
	}

	return nil
}

// Valid returns true if the position is within the geographic bounds. NaN is
// never valid.
func (c Coordinates) Valid() bool {
	return c.Lat >= MinLatitude && c.Lat <= MaxLatitude &&
		c.Lon >= MinLongitude && c.Lon <= MaxLongitude
}

func validateMetadata(metadata string) error {
	if !validText(metadata, MaxMetadataLength) {
		return ErrInvalidMetadata
	}

	return nil
}

func validatePrice(price int64) error {
	if price < 0 {
		return ErrInvalidPrice
	}

	return nil
}

func validText(value string, max int) bool {
	return value != "" && utf8.RuneCountInString(value) <= max
}
