package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/package-registry/interfaces"
)

// IPFSJournal publishes journal entries to an IPFS node. Entries are pinned
// on add; the mapping from content ID to IPFS CID is kept in memory.
type IPFSJournal struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string

	mu   sync.RWMutex
	cids map[interfaces.ContentID]string
}

// NewIPFSJournal creates a journal backed by the IPFS API at host:port.
func NewIPFSJournal(host, port string, timeout time.Duration, log *slog.Logger) *IPFSJournal {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSJournal{
		shell:       sh,
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
		cids:        make(map[interfaces.ContentID]string),
	}
}

// Append adds entry to IPFS and returns its content ID.
func (j *IPFSJournal) Append(ctx context.Context, entry []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(entry)

	if !j.shell.IsUp() {
		return id, interfaces.ErrBackendUnavailable
	}

	cid, err := j.shell.Add(bytes.NewReader(entry), shell.Pin(true))
	if err != nil {
		return id, fmt.Errorf("failed to add journal entry to IPFS: %w", err)
	}

	j.mu.Lock()
	j.cids[id] = cid
	j.mu.Unlock()

	j.log.Debug("Stored journal entry in IPFS",
		slog.String("ipfsCID", cid),
		slog.String("contentID", id.String()))
	return id, nil
}

// Fetch returns an entry appended by this journal instance.
func (j *IPFSJournal) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	j.mu.RLock()
	cid, ok := j.cids[id]
	j.mu.RUnlock()
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}

	if !j.shell.IsUp() {
		j.log.Warn("IPFS node unavailable",
			slog.String("host", j.host),
			slog.String("port", j.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := j.shell.Cat("/ipfs/" + cid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch journal entry from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal entry from IPFS: %w", err)
	}
	if interfaces.ComputeID(data) != id {
		return nil, fmt.Errorf("IPFS returned content not matching %s", id)
	}
	return data, nil
}

// CIDFor returns the IPFS CID of an appended entry.
func (j *IPFSJournal) CIDFor(id interfaces.ContentID) (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	cid, ok := j.cids[id]
	return cid, ok
}

func (j *IPFSJournal) Available(ctx context.Context) bool {
	return j.shell.IsUp()
}

func (j *IPFSJournal) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", j.host, j.port)
}

func (j *IPFSJournal) LocationURI() string {
	return j.locationURI
}
