package agridata

import (
	"github.com/rs/zerolog"
	"go.dedis.ch/agrireg"
	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/fee"
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/store/mem"
	"go.dedis.ch/agrireg/core/store/prefixed"
	"golang.org/x/xerrors"
)

const (
	// StorePrefix isolates the keys of the registry in the ledger state.
	StorePrefix = "agridata"

	// DefaultMaxEntries is the default ceiling of registered entries.
	DefaultMaxEntries = 10000

	// DefaultUploadFee is the default fee charged per registration.
	DefaultUploadFee = 100
)

// Option is the type of options to create a registry.
type Option func(*Registry)

// WithMaxEntries sets the ceiling used until the configuration is first
// written in the ledger.
func WithMaxEntries(max uint64) Option {
	return func(r *Registry) {
		r.state.defaults.MaxEntries = max
	}
}

// WithUploadFee sets the fee used until the configuration is first written in
// the ledger.
func WithUploadFee(fee uint64) Option {
	return func(r *Registry) {
		r.state.defaults.UploadFee = fee
	}
}

// Registry implements the state transitions of the data registry. It is
// stateless: every operation takes the store it applies to, and the caller is
// responsible for running the mutating operations one at a time.
type Registry struct {
	state  state
	oracle access.Oracle
	sink   fee.Sink
	logger zerolog.Logger
}

// NewRegistry creates a registry that checks the submitters with the oracle
// and charges the upload fee through the sink.
func NewRegistry(oracle access.Oracle, sink fee.Sink, opts ...Option) *Registry {
	r := &Registry{
		state: state{
			defaults: Config{
				MaxEntries: DefaultMaxEntries,
				UploadFee:  DefaultUploadFee,
			},
		},
		oracle: oracle,
		sink:   sink,
		logger: agrireg.Logger.With().Str("contract", ContractName).Logger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Init writes the initial configuration if the ledger does not have one yet.
// It returns the configuration in use.
func (r *Registry) Init(snap store.Snapshot) (Config, error) {
	pstore := prefixed.NewSnapshot(StorePrefix, snap)

	data, err := pstore.Get(configKey)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to read config: %v", err)
	}

	if data != nil {
		return r.state.readConfig(pstore)
	}

	cfg := r.state.defaults

	err = r.state.writeConfig(pstore, cfg)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Register validates the fields, charges the upload fee to the caller and
// stores a new entry. It returns the identifier of the entry.
func (r *Registry) Register(snap store.Snapshot, caller access.Principal,
	height uint64, fields Fields) (uint64, error) {

	stage := mem.NewStaging(snap)
	pstore := prefixed.NewSnapshot(StorePrefix, stage)

	cfg, err := r.state.readConfig(pstore)
	if err != nil {
		return 0, err
	}

	err = Validate(cfg, fields)
	if err != nil {
		return 0, err
	}

	verified, err := r.oracle.IsVerifiedAuthority(snap, caller)
	if err != nil {
		return 0, xerrors.Errorf("failed to verify authority: %v", err)
	}

	if !verified {
		return 0, ErrNotAuthorized
	}

	_, found, err := r.state.lookupHash(pstore, fields.DataHash)
	if err != nil {
		return 0, err
	}

	if found {
		return 0, ErrDataAlreadyExists
	}

	if cfg.AuthorityContract.IsZero() {
		return 0, ErrAuthorityNotVerified
	}

	err = r.sink.Transfer(stage, cfg.UploadFee, caller, cfg.AuthorityContract)
	if err != nil {
		return 0, xerrors.Errorf("failed to transfer fee: %v", err)
	}

	entry := DataEntry{
		ID:          cfg.NextID,
		DataHash:    fields.DataHash,
		Metadata:    fields.Metadata,
		Location:    fields.Location,
		CropType:    fields.CropType,
		CaptureDate: fields.CaptureDate,
		Price:       fields.Price,
		Timestamp:   height,
		Owner:       caller,
		DataType:    fields.DataType,
		Resolution:  fields.Resolution,
		Coordinates: fields.Coordinates,
		SensorType:  fields.SensorType,
		Format:      fields.Format,
		Status:      true,
	}

	err = r.state.writeEntry(pstore, entry)
	if err != nil {
		return 0, err
	}

	err = r.state.writeHash(pstore, entry.DataHash, entry.ID)
	if err != nil {
		return 0, err
	}

	cfg.NextID++

	err = r.state.writeConfig(pstore, cfg)
	if err != nil {
		return 0, err
	}

	err = stage.Apply(snap)
	if err != nil {
		return 0, xerrors.Errorf("failed to commit: %v", err)
	}

	r.logger.Info().
		Uint64("id", entry.ID).
		Str("hash", entry.DataHash).
		Str("owner", caller.String()).
		Uint64("fee", cfg.UploadFee).
		Msg("data registered")

	return entry.ID, nil
}

// Update replaces the metadata and the price of the entry owned by the caller
// and records the change as the audit record of the entry.
func (r *Registry) Update(snap store.Snapshot, caller access.Principal,
	height uint64, id uint64, metadata string, price int64) error {

	pstore := prefixed.NewSnapshot(StorePrefix, snap)

	entry, err := r.state.readEntry(pstore, id)
	if err != nil {
		return err
	}

	if entry == nil {
		return ErrDataNotFound
	}

	if entry.Owner != caller {
		return ErrNotOwner
	}

	err = validateMetadata(metadata)
	if err != nil {
		return err
	}

	err = validatePrice(price)
	if err != nil {
		return err
	}

	entry.Metadata = metadata
	entry.Price = price
	entry.Timestamp = height

	update := DataUpdate{
		Metadata:  metadata,
		Price:     price,
		Timestamp: height,
		Updater:   caller,
	}

	stage := mem.NewStaging(pstore)

	err = r.state.writeEntry(stage, *entry)
	if err != nil {
		return err
	}

	err = r.state.writeUpdate(stage, id, update)
	if err != nil {
		return err
	}

	err = stage.Apply(pstore)
	if err != nil {
		return xerrors.Errorf("failed to commit: %v", err)
	}

	r.logger.Info().
		Uint64("id", id).
		Str("updater", caller.String()).
		Int64("price", price).
		Msg("data updated")

	return nil
}

// BindAuthorityContract sets the recipient of the upload fees. The binding is
// permanent and the burn principal is never accepted.
func (r *Registry) BindAuthorityContract(snap store.Snapshot, principal access.Principal) error {
	pstore := prefixed.NewSnapshot(StorePrefix, snap)

	cfg, err := r.state.readConfig(pstore)
	if err != nil {
		return err
	}

	if principal.IsZero() || principal.IsBurn() || !cfg.AuthorityContract.IsZero() {
		return ErrInvalidAuthorityContract
	}

	cfg.AuthorityContract = principal

	err = r.state.writeConfig(pstore, cfg)
	if err != nil {
		return err
	}

	r.logger.Info().Str("authority", principal.String()).Msg("authority contract bound")

	return nil
}

// SetUploadFee changes the fee charged per registration. It requires an
// authority contract to be bound. The caller is not checked.
func (r *Registry) SetUploadFee(snap store.Snapshot, fee uint64) error {
	pstore := prefixed.NewSnapshot(StorePrefix, snap)

	cfg, err := r.state.readConfig(pstore)
	if err != nil {
		return err
	}

	if cfg.AuthorityContract.IsZero() {
		return ErrAuthorityNotVerified
	}

	cfg.UploadFee = fee

	err = r.state.writeConfig(pstore, cfg)
	if err != nil {
		return err
	}

	r.logger.Info().Uint64("fee", fee).Msg("upload fee changed")

	return nil
}

// GetConfig returns the configuration of the registry.
func (r *Registry) GetConfig(s store.Readable) (Config, error) {
	return r.state.readConfig(prefixed.NewReadable(StorePrefix, s))
}

// Count returns the number of registered entries.
func (r *Registry) Count(s store.Readable) (uint64, error) {
	cfg, err := r.GetConfig(s)
	if err != nil {
		return 0, err
	}

	return cfg.NextID, nil
}

// ExistsByHash returns true if an entry is registered with the hash.
func (r *Registry) ExistsByHash(s store.Readable, hash string) (bool, error) {
	_, found, err := r.state.lookupHash(prefixed.NewReadable(StorePrefix, s), hash)
	return found, err
}

// GetByID returns the entry with the identifier, or nil if it does not exist.
func (r *Registry) GetByID(s store.Readable, id uint64) (*DataEntry, error) {
	return r.state.readEntry(prefixed.NewReadable(StorePrefix, s), id)
}

// GetByHash returns the entry with the hash, or nil if it does not exist.
func (r *Registry) GetByHash(s store.Readable, hash string) (*DataEntry, error) {
	pstore := prefixed.NewReadable(StorePrefix, s)

	id, found, err := r.state.lookupHash(pstore, hash)
	if err != nil || !found {
		return nil, err
	}

	return r.state.readEntry(pstore, id)
}

// GetUpdate returns the audit record of the last update of the entry, or nil
// if the entry has never been updated.
func (r *Registry) GetUpdate(s store.Readable, id uint64) (*DataUpdate, error) {
	return r.state.readUpdate(prefixed.NewReadable(StorePrefix, s), id)
}
