package downloader

import (
	"fmt"

	"github.com/parityfleet/paritynode/core/protocol"
)

type errNullResponse struct {
	req protocol.BlockRequest
}

func (e errNullResponse) Error() string {
	return fmt.Sprintf("peer returned null response for request %+v", e.req)
}

type errShortResponse struct {
	req protocol.BlockRequest
	got int
}

func (e errShortResponse) Error() string {
	return fmt.Sprintf("peer returned %d bytes for request %+v", e.got, e.req)
}
