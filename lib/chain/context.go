package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type senderKey struct{}

type txKey struct{}

// WithSender returns a context whose calls are made on behalf of sender.
func WithSender(ctx context.Context, sender common.Address) context.Context {
	return context.WithValue(ctx, senderKey{}, sender)
}

// Sender returns the account the current call is made by, the zero address
// when none is set.
func Sender(ctx context.Context) common.Address {
	sender, _ := ctx.Value(senderKey{}).(common.Address)
	return sender
}

func inTx(ctx context.Context, e *Env) bool {
	owner, _ := ctx.Value(txKey{}).(*Env)
	return owner == e
}
