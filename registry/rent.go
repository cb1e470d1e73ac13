package registry

const (
	// AccountStorageOverhead is charged on top of the data length of every
	// account.
	AccountStorageOverhead = 128

	LamportsPerByteYear     = 3480
	ExemptionThresholdYears = 2
)

// MinimumBalance is the lamport balance that keeps an account of dataLen
// bytes alive indefinitely. Creating a record moves this amount from the
// payer into the record; deleting it returns the record balance.
func MinimumBalance(dataLen int) uint64 {
	return (AccountStorageOverhead + uint64(dataLen)) * LamportsPerByteYear * ExemptionThresholdYears
}
