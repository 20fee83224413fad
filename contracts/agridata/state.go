package agridata

import (
	"encoding/binary"
	"encoding/json"

	"go.dedis.ch/agrireg/core/store"
	"golang.org/x/xerrors"
)

// The state of the registry is made of three keyed collections and the
// configuration record:
//
//	config          -> Config
//	entry:<id>      -> DataEntry
//	update:<id>     -> DataUpdate
//	hash:<dataHash> -> id
//
// Identifiers are encoded in big-endian over 8 bytes.
var (
	configKey    = []byte("config")
	entryPrefix  = []byte("entry:")
	updatePrefix = []byte("update:")
	hashPrefix   = []byte("hash:")
)

// state reads and writes the registry collections in a store whose keys are
// already isolated from the other contracts.
type state struct {
	defaults Config
}

func (s state) readConfig(r store.Readable) (Config, error) {
	data, err := r.Get(configKey)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to read config: %v", err)
	}

	if data == nil {
		return s.defaults, nil
	}

	var cfg Config
	err = json.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to decode config: %v", err)
	}

	return cfg, nil
}

func (s state) writeConfig(w store.Writable, cfg Config) error {
	return writeJSON(w, configKey, cfg, "config")
}

func (s state) readEntry(r store.Readable, id uint64) (*DataEntry, error) {
	data, err := r.Get(idKey(entryPrefix, id))
	if err != nil {
		return nil, xerrors.Errorf("failed to read entry %d: %v", id, err)
	}

	if data == nil {
		return nil, nil
	}

	entry := &DataEntry{}
	err = json.Unmarshal(data, entry)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode entry %d: %v", id, err)
	}

	return entry, nil
}

func (s state) writeEntry(w store.Writable, entry DataEntry) error {
	return writeJSON(w, idKey(entryPrefix, entry.ID), entry, "entry")
}

func (s state) readUpdate(r store.Readable, id uint64) (*DataUpdate, error) {
	data, err := r.Get(idKey(updatePrefix, id))
	if err != nil {
		return nil, xerrors.Errorf("failed to read update %d: %v", id, err)
	}

	if data == nil {
		return nil, nil
	}

	update := &DataUpdate{}
	err = json.Unmarshal(data, update)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode update %d: %v", id, err)
	}

	return update, nil
}

func (s state) writeUpdate(w store.Writable, id uint64, update DataUpdate) error {
	return writeJSON(w, idKey(updatePrefix, id), update, "update")
}

// lookupHash returns the identifier of the entry with the hash, if any.
func (s state) lookupHash(r store.Readable, hash string) (uint64, bool, error) {
	data, err := r.Get(hashKey(hash))
	if err != nil {
		return 0, false, xerrors.Errorf("failed to read hash index: %v", err)
	}

	if len(data) != 8 {
		return 0, false, nil
	}

	return binary.BigEndian.Uint64(data), true, nil
}

func (s state) writeHash(w store.Writable, hash string, id uint64) error {
	err := w.Set(hashKey(hash), encodeID(id))
	if err != nil {
		return xerrors.Errorf("failed to write hash index: %v", err)
	}

	return nil
}

func writeJSON(w store.Writable, key []byte, value interface{}, what string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return xerrors.Errorf("failed to encode %s: %v", what, err)
	}

	err = w.Set(key, data)
	if err != nil {
		return xerrors.Errorf("failed to write %s: %v", what, err)
	}

	return nil
}

func idKey(prefix []byte, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)

	return key
}

func hashKey(hash string) []byte {
	return append(append([]byte{}, hashPrefix...), hash...)
}

func encodeID(id uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, id)

	return buffer
}
