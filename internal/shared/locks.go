package shared

// CreditScanLockKey is the redis key guarding the credit delay scan.
func CreditScanLockKey() string {
	return "credit:scan:lock"
}
