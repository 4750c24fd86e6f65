package discovery

import "errors"

// ErrScannerNotFound is returned by ScanByType for an unregistered type
var ErrScannerNotFound = errors.New("scanner type not found")
