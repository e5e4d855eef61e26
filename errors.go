package scimaster

import "errors"

// ErrFeatureNotImplemented is logged when a response arrives while the
// outstanding transfer is a Downstream one: the transfer controller rejects it
// (transfer.Controller surfaces the equivalent dataframe.ErrFeatureNotImplemented,
// which the master re-expresses as this package's own sentinel once it
// reaches the log).
var ErrFeatureNotImplemented = errors.New("scimaster: feature not implemented")
