package registry

import (
	"crypto/sha256"
	"fmt"

	"github.com/ruteri/package-registry/interfaces"
)

// DefaultReplayWindow is the number of committed transaction signatures
// kept for duplicate detection when Config.ReplayWindow is zero.
const DefaultReplayWindow = 4096

// replayLog remembers the signatures of the most recently committed
// transactions. It lives in a system account next to the records, so every
// transaction commits its own signature in the same batch as its writes
// and the log survives restarts.
type replayLog struct {
	address interfaces.Address
	owner   interfaces.PublicKey
	window  int
	order   []interfaces.Signature
	seen    map[interfaces.Signature]struct{}
}

// ReplayLogAddress is the account holding the replay log of programID. The
// account is owned by a key derived the same way, so it is neither a wallet
// nor a record.
func ReplayLogAddress(programID interfaces.PublicKey) interfaces.Address {
	return replayKey("replay-log", programID)
}

func replayKey(label string, programID interfaces.PublicKey) interfaces.PublicKey {
	h := sha256.New()
	h.Write([]byte(label))
	h.Write(programID[:])

	var key interfaces.PublicKey
	copy(key[:], h.Sum(nil))
	return key
}

func newReplayLog(cfg Config, accounts map[interfaces.Address]interfaces.Account) (*replayLog, error) {
	window := cfg.ReplayWindow
	if window <= 0 {
		window = DefaultReplayWindow
	}
	l := &replayLog{
		address: ReplayLogAddress(cfg.ProgramID),
		owner:   replayKey("replay-log-owner", cfg.ProgramID),
		window:  window,
		seen:    make(map[interfaces.Signature]struct{}),
	}

	account, ok := accounts[l.address]
	if !ok {
		return l, nil
	}
	if account.Owner != l.owner || len(account.Data)%interfaces.SignatureSize != 0 {
		return nil, fmt.Errorf("%w: replay log at %s", ErrCorruptAccount, l.address)
	}
	for off := 0; off < len(account.Data); off += interfaces.SignatureSize {
		var sig interfaces.Signature
		copy(sig[:], account.Data[off:])
		l.push(sig)
	}
	return l, nil
}

func (l *replayLog) contains(id interfaces.Signature) bool {
	_, ok := l.seen[id]
	return ok
}

// write returns the account write that records id, leaving l unchanged.
func (l *replayLog) write(id interfaces.Signature) interfaces.AccountWrite {
	kept := l.order
	if len(kept) >= l.window {
		kept = kept[len(kept)-l.window+1:]
	}

	data := make([]byte, 0, (len(kept)+1)*interfaces.SignatureSize)
	for _, sig := range kept {
		data = append(data, sig[:]...)
	}
	data = append(data, id[:]...)

	return interfaces.AccountWrite{
		Address: l.address,
		Account: &interfaces.Account{Owner: l.owner, Data: data},
	}
}

// push records id after its commit, evicting the oldest signatures beyond
// the window.
func (l *replayLog) push(id interfaces.Signature) {
	if l.contains(id) {
		return
	}
	l.order = append(l.order, id)
	l.seen[id] = struct{}{}
	for len(l.order) > l.window {
		delete(l.seen, l.order[0])
		l.order = l.order[1:]
	}
}

func (l *replayLog) size() int {
	return len(l.order)
}
