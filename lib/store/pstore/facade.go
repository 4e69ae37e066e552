package pstore

import (
	"strconv"
	"strings"

	"github.com/cellardb/cellar/lib/engine"
	"github.com/cellardb/cellar/lib/store"
)

// --------------------------------------------------------------------------
// Durability Policy
// --------------------------------------------------------------------------

// durabilityPolicy maps a domain onto the write options its commits use.
type durabilityPolicy struct {
	fastDomain string
}

// writeOptions returns the options for every write to the given domain.
// The fast domain trades durability for throughput: its writes bypass the
// write-ahead log and are never synced. All other domains sync explicitly
// so a crash cannot lose an acknowledged write.
func (p durabilityPolicy) writeOptions(domain string) engine.WriteOptions {
	if p.fastDomain != "" && domain == p.fastDomain {
		return engine.WriteOptions{DisableWAL: true}
	}
	return engine.WriteOptions{Sync: true}
}

// --------------------------------------------------------------------------
// Internal Helpers (used by interface methods)
// --------------------------------------------------------------------------

// requireOpen returns the current session or a NotOpened error.
func (s *Store) requireOpen() (*session, error) {
	sess := s.session.Load()
	if sess == nil {
		return nil, store.NewError(store.RetCNotOpened, "store not opened")
	}
	return sess, nil
}

// resolve maps a domain name onto its partition handle.
func (sess *session) resolve(domain string) (engine.Partition, error) {
	p, ok := sess.router.resolve(domain)
	if !ok {
		return nil, store.NewErrorf(store.RetCDomainNotFound, "could not resolve domain %q", domain)
	}
	return p, nil
}

// wrapEngineError converts an engine status into a store error.
//
// IO error texts are trimmed to their last segment: the engine chains the
// internal call sites into the message and those identifiers mean nothing
// outside the engine.
func wrapEngineError(err error) error {
	switch {
	case engine.IsCorruption(err):
		return store.NewError(store.RetCCorruption, err.Error())
	case engine.IsIOError(err):
		return store.NewError(store.RetCIOError, "IOError: "+ioTrim(err.Error()))
	default:
		return store.NewError(store.RetCInternalError, err.Error())
	}
}

func ioTrim(text string) string {
	if idx := strings.LastIndex(text, ": "); idx >= 0 {
		return text[idx+2:]
	}
	return text
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(domain, key string) ([]byte, bool, error) {
	sess, err := s.requireOpen()
	if err != nil {
		return nil, false, err
	}
	p, err := sess.resolve(domain)
	if err != nil {
		return nil, false, err
	}
	value, found, err := sess.eng.Get(p, key)
	if err != nil {
		return nil, false, wrapEngineError(err)
	}
	return value, found, nil
}

func (s *Store) GetInt(domain, key string) (int64, bool, error) {
	raw, found, err := s.Get(domain, key)
	if err != nil || !found {
		return 0, found, err
	}
	value, perr := strconv.ParseInt(string(raw), 10, 64)
	if perr != nil {
		return 0, false, store.NewErrorf(store.RetCDeserialization,
			"could not deserialize value for key %s to int", key)
	}
	return value, true, nil
}

func (s *Store) Put(domain, key string, value []byte) error {
	return s.PutBatch(domain, []store.Pair{{Key: key, Value: value}})
}

func (s *Store) PutInt(domain, key string, value int64) error {
	return s.PutBatch(domain, []store.Pair{
		{Key: key, Value: []byte(strconv.FormatInt(value, 10))},
	})
}

func (s *Store) PutBatch(domain string, pairs []store.Pair) error {
	sess, err := s.requireOpen()
	if err != nil {
		return err
	}
	// Read-only mode drops writes silently, before any domain resolution.
	if sess.readOnly {
		return nil
	}
	p, err := sess.resolve(domain)
	if err != nil {
		return err
	}

	batch := sess.eng.NewBatch(p)
	for _, pair := range pairs {
		batch.Put(pair.Key, pair.Value)
	}
	if err := batch.Commit(s.policy.writeOptions(domain)); err != nil {
		return wrapEngineError(err)
	}
	return nil
}

func (s *Store) Remove(domain, key string) error {
	sess, err := s.requireOpen()
	if err != nil {
		return err
	}
	if sess.readOnly {
		return nil
	}
	p, err := sess.resolve(domain)
	if err != nil {
		return err
	}
	if err := sess.eng.Delete(p, key, s.policy.writeOptions(domain)); err != nil {
		return wrapEngineError(err)
	}
	return nil
}

func (s *Store) RemoveRange(domain, low, high string) error {
	sess, err := s.requireOpen()
	if err != nil {
		return err
	}
	if sess.readOnly {
		return nil
	}
	p, err := sess.resolve(domain)
	if err != nil {
		return err
	}

	wo := s.policy.writeOptions(domain)
	if err := sess.eng.DeleteRange(p, low, high, wo); err != nil {
		return wrapEngineError(err)
	}
	// The engine range is half-open, the store contract includes high.
	if low <= high {
		if err := sess.eng.Delete(p, high, wo); err != nil {
			return wrapEngineError(err)
		}
	}
	return nil
}

func (s *Store) Scan(domain, prefix string, limit int) ([]string, error) {
	sess, err := s.requireOpen()
	if err != nil {
		return nil, err
	}
	p, err := sess.resolve(domain)
	if err != nil {
		return nil, err
	}

	// Scans are maintenance reads: skip checksum verification and keep the
	// touched blocks out of the engine cache.
	it, err := sess.eng.NewIterator(p, engine.ReadOptions{
		VerifyChecksums: false,
		FillCache:       false,
	})
	if err != nil {
		return nil, wrapEngineError(err)
	}
	defer it.Close()

	keys := make([]string, 0)
	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := it.Key()
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		keys = append(keys, key)
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	return keys, nil
}

func (s *Store) GetStoreInfo() (store.StoreInfo, error) {
	info := store.StoreInfo{
		Path:      s.config.Path,
		State:     s.State().String(),
		Corrupted: s.flag.IsSet(),
	}

	sess := s.session.Load()
	if sess == nil {
		return info, nil
	}
	info.Domains = sess.router.domains()
	info.ReadOnly = sess.readOnly

	engInfo, err := sess.eng.GetInfo()
	if err != nil {
		return info, wrapEngineError(err)
	}
	info.Engine = engInfo
	return info, nil
}
