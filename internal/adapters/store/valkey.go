package store

import (
	"context"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Store = (*Valkey)(nil)

// DefaultConnectTimeout is the maximum time to wait for the initial ping.
const DefaultConnectTimeout = 5 * time.Second

// scanBatchSize is the COUNT hint for SCAN during pattern clears.
const scanBatchSize = 256

// ValkeyConfig holds the connection settings for a Valkey-backed store.
type ValkeyConfig struct {
	Address        string
	Password       string
	DB             int
	ConnectTimeout time.Duration
}

// Valkey is a ports.Store backed by a Valkey server. TTL expiry is enforced
// server-side via PX.
type Valkey struct {
	client valkeylib.Client
}

// NewValkey connects to the configured Valkey server and verifies the
// connection with a ping. The caller owns Close.
func NewValkey(cfg ValkeyConfig) (*Valkey, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create valkey client")
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, zerr.With(zerr.Wrap(err, "failed to ping valkey"), "address", cfg.Address)
	}

	return &Valkey{client: client}, nil
}

// Close releases the connection.
func (v *Valkey) Close() {
	v.client.Close()
}

// Get retrieves the value for key. Returns (nil, nil) on miss.
func (v *Valkey) Get(ctx context.Context, key string) ([]byte, error) {
	resp := v.client.Do(ctx, v.client.B().Get().Key(key).Build())
	data, err := resp.AsBytes()
	if err != nil {
		if valkeylib.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key)
	}
	return data, nil
}

// Set stores value under key with the given TTL.
func (v *Valkey) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	builder := v.client.B().Set().Key(key).Value(valkeylib.BinaryString(value))

	var cmd valkeylib.Completed
	if ttl > 0 {
		cmd = builder.Px(ttl).Build()
	} else {
		cmd = builder.Build()
	}

	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	return nil
}

// Delete removes the given keys.
func (v *Valkey) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := v.client.Do(ctx, v.client.B().Del().Key(keys...).Build()).Error(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error())
	}
	return nil
}

// Clear removes every key matching the glob-style pattern using a SCAN
// loop, so large keyspaces never block the server.
func (v *Valkey) Clear(ctx context.Context, pattern string) (int, error) {
	removed := 0
	cursor := uint64(0)

	for {
		resp := v.client.Do(ctx, v.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatchSize).Build())
		entry, err := resp.AsScanEntry()
		if err != nil {
			return removed, zerr.With(zerr.Wrap(err, domain.ErrStoreClearFailed.Error()), "pattern", pattern)
		}

		if len(entry.Elements) > 0 {
			if err := v.Delete(ctx, entry.Elements...); err != nil {
				return removed, err
			}
			removed += len(entry.Elements)
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return removed, nil
		}
	}
}

// IsNil reports whether err represents a Valkey NIL response.
func IsNil(err error) bool {
	return valkeylib.IsValkeyNil(err)
}
