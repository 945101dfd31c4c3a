package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"producechain/pkg/domain"
)

// Operation describes one named entry point of the positional-argument surface.
type Operation struct {
	Name     string
	MinArgs  int
	MaxArgs  int
	ReadOnly bool
	call     func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error)
}

var operations = map[string]Operation{}

func register(op Operation) {
	operations[strings.ToLower(op.Name)] = op
}

func init() {
	register(Operation{Name: "InitLedger", call: func(context.Context, *Engine, domain.Transaction, []string) (any, error) {
		return nil, nil
	}})
	register(Operation{Name: "RegisterProduce", MinArgs: 1, MaxArgs: 2, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		details, err := ParseRegisterDetails(arg(args, 1))
		if err != nil {
			return nil, err
		}
		return e.RegisterAsset(ctx, tx, args[0], details)
	}})
	register(Operation{Name: "UpdateLocation", MinArgs: 3, MaxArgs: 3, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		update, err := domain.ParseLocationUpdate(args[2])
		if err != nil {
			return nil, err
		}
		return e.UpdateLocation(ctx, tx, args[0], args[1], update)
	}})
	register(Operation{Name: "MarkAsUnavailable", MinArgs: 2, MaxArgs: 4, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		return e.MarkUnavailable(ctx, tx, args[0], args[1], arg(args, 2), domain.Status(arg(args, 3)))
	}})
	register(Operation{Name: "InspectProduce", MinArgs: 2, MaxArgs: 3, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		update, err := ParseQualityUpdate(arg(args, 2))
		if err != nil {
			return nil, err
		}
		return e.Inspect(ctx, tx, args[0], args[1], update)
	}})
	register(Operation{Name: "UpdateDetails", MinArgs: 2, MaxArgs: 3, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		update, err := ParseDetailsUpdate(arg(args, 2))
		if err != nil {
			return nil, err
		}
		return e.UpdateDetails(ctx, tx, args[0], args[1], update)
	}})
	register(Operation{Name: "SplitProduce", MinArgs: 3, MaxArgs: 3, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		qty, err := parseDecimal(args[1], "qty")
		if err != nil {
			return nil, err
		}
		return e.Split(ctx, tx, args[0], qty, args[2])
	}})
	register(Operation{Name: "TransferOwnership", MinArgs: 4, MaxArgs: 4, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		qty, err := parseDecimal(args[2], "qty")
		if err != nil {
			return nil, err
		}
		price, err := parseDecimal(args[3], "salePrice")
		if err != nil {
			return nil, err
		}
		return e.TransferOwnership(ctx, tx, args[0], args[1], qty, price)
	}})
	register(Operation{Name: "RecordPayment", MinArgs: 3, MaxArgs: 5, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		return e.RecordPayment(ctx, tx, args[0], args[1], args[2], arg(args, 3), arg(args, 4))
	}})
	register(Operation{Name: "GetProduceByID", MinArgs: 1, MaxArgs: 1, ReadOnly: true, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		return e.GetAsset(ctx, tx, args[0])
	}})
	register(Operation{Name: "GetProduceByOwner", MinArgs: 1, MaxArgs: 1, ReadOnly: true, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		return e.GetAssetsByOwner(ctx, tx, args[0])
	}})
	register(Operation{Name: "GetProduceLineage", MinArgs: 1, MaxArgs: 1, ReadOnly: true, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		return e.GetLineage(ctx, tx, args[0])
	}})
	register(Operation{Name: "RegisterUser", MinArgs: 1, MaxArgs: 2, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		details, err := ParseParticipantDetails(arg(args, 1))
		if err != nil {
			return nil, err
		}
		return e.RegisterParticipant(ctx, tx, args[0], details)
	}})
	register(Operation{Name: "GetUserDetails", MinArgs: 1, MaxArgs: 1, ReadOnly: true, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		return e.GetParticipant(ctx, tx, args[0])
	}})
	register(Operation{Name: "UpdateUser", MinArgs: 1, MaxArgs: 2, call: func(ctx context.Context, e *Engine, tx domain.Transaction, args []string) (any, error) {
		return e.UpdateParticipant(ctx, tx, args[0], arg(args, 1))
	}})
}

// LookupOperation resolves an operation name case-insensitively, so both
// "GetProduceByID" and "getProduceById" resolve to the same entry.
func LookupOperation(name string) (Operation, bool) {
	op, ok := operations[strings.ToLower(strings.TrimSpace(name))]
	return op, ok
}

// Operations lists the registered operation names in sorted order.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for _, op := range operations {
		names = append(names, op.Name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named operation with positional arguments and returns its JSON result.
// InitLedger returns nil.
func (e *Engine) Invoke(ctx context.Context, tx domain.Transaction, name string, args []string) ([]byte, error) {
	op, ok := LookupOperation(name)
	if !ok {
		return nil, domain.InvalidArgument("unknown operation %q", name)
	}
	return e.invoke(ctx, tx, op, args)
}

func (e *Engine) invoke(ctx context.Context, tx domain.Transaction, op Operation, args []string) ([]byte, error) {
	if len(args) < op.MinArgs || len(args) > op.MaxArgs {
		if op.MinArgs == op.MaxArgs {
			return nil, domain.InvalidArgument("%s takes %d arguments, got %d", op.Name, op.MinArgs, len(args))
		}
		return nil, domain.InvalidArgument("%s takes %d to %d arguments, got %d", op.Name, op.MinArgs, op.MaxArgs, len(args))
	}
	out, err := op.call(ctx, e, tx, args)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", op.Name, err)
	}
	return data, nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
