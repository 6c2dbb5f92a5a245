package venue

import (
	"fmt"

	"github.com/canopy-network/stakebatch/lib"
)

func ErrVenueRequest(call lib.CallKind, err error) lib.ErrorI {
	return lib.NewError(lib.CodeVenueRequest, lib.VenueModule, fmt.Sprintf("%s request failed with err: %s", call, err.Error()))
}

func ErrVenueStatus(call lib.CallKind, status string, body []byte) lib.ErrorI {
	return lib.NewError(lib.CodeVenueStatus, lib.VenueModule, fmt.Sprintf("%s returned %s: %s", call, status, string(body)))
}

func ErrVenueDecode(call lib.CallKind, err error) lib.ErrorI {
	return lib.NewError(lib.CodeVenueDecode, lib.VenueModule, fmt.Sprintf("%s reply could not be decoded: %s", call, err.Error()))
}

func ErrVenueRejected(call lib.CallKind, reason string) lib.ErrorI {
	return lib.NewError(lib.CodeVenueRejected, lib.VenueModule, fmt.Sprintf("%s rejected: %s", call, reason))
}
