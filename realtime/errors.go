package realtime

import "errors"

var errNoTenant = errors.New("no tenant context")
