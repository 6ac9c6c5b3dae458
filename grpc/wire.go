package emblemgrpc

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/types"
)

// Request wrappers for methods whose signatures don't map to a single
// struct. They exist only at the gRPC serialization boundary.

// CheckTxRequest wraps the parameters of Lifecycle.CheckTx.
type CheckTxRequest struct {
	Tx      types.Tx             `cramberry:"1"`
	Context types.MempoolContext `cramberry:"2"`
}

// CommitRequest is the (empty) request of Lifecycle.Commit.
type CommitRequest struct{}

// SimulateRequest wraps the parameter of Simulator.Simulate.
type SimulateRequest struct {
	Tx types.Tx `cramberry:"1"`
}

// A HaltError crosses the wire as an Aborted status whose message is
// "<height> <reason>".

func haltStatus(h *emblem.HaltError) error {
	return status.Error(codes.Aborted, fmt.Sprintf("%d %s", h.Height, h.Reason))
}

// fromStatus restores a HaltError carried by err. Other errors are
// returned unchanged.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return err
	}
	height, reason, found := strings.Cut(st.Message(), " ")
	if !found {
		return err
	}
	h, perr := strconv.ParseUint(height, 10, 64)
	if perr != nil {
		return err
	}
	return emblem.NewHaltError(h, reason)
}
