package pstore

import (
	"github.com/cellardb/cellar/lib/engine"
)

// domainRouter resolves domain names to engine partition handles.
//
// The mapping is built once per open and never changes until the engine is
// closed, so lookups need no locking. Resolution is a linear walk: a store
// carries a handful of domains and a slice scan beats a map at that size.
type domainRouter struct {
	names   []string
	handles []engine.Partition
}

func newDomainRouter(partitions []engine.Partition) *domainRouter {
	r := &domainRouter{
		names:   make([]string, len(partitions)),
		handles: make([]engine.Partition, len(partitions)),
	}
	for i, p := range partitions {
		r.names[i] = p.Name()
		r.handles[i] = p
	}
	return r
}

// resolve returns the partition handle for a domain name. The second
// return value is false if no such domain exists.
func (r *domainRouter) resolve(domain string) (engine.Partition, bool) {
	for i, name := range r.names {
		if name == domain {
			return r.handles[i], true
		}
	}
	return nil, false
}

// domains returns the domain names in partition order.
func (r *domainRouter) domains() []string {
	return append([]string(nil), r.names...)
}
