package deployment

import (
	"fmt"

	"github.com/strogmv/assembler/assembler/info"
)

// TransactionType is a container-managed transaction attribute.
type TransactionType string

const (
	Required     TransactionType = info.TxRequired
	RequiresNew  TransactionType = info.TxRequiresNew
	Mandatory    TransactionType = info.TxMandatory
	Never        TransactionType = info.TxNever
	NotSupported TransactionType = info.TxNotSupported
	Supports     TransactionType = info.TxSupports
	// BeanManaged marks beans that demarcate their own transactions.
	BeanManaged TransactionType = "BeanManaged"
)

// ParseTransactionType accepts the descriptor spellings.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case Required, RequiresNew, Mandatory, Never, NotSupported, Supports:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("unknown transaction attribute %q", s)
}

// LockType is a singleton concurrency lock.
type LockType string

const (
	Read  LockType = info.LockRead
	Write LockType = info.LockWrite
)

// ParseLockType accepts the descriptor spellings.
func ParseLockType(s string) (LockType, error) {
	switch LockType(s) {
	case Read, Write:
		return LockType(s), nil
	}
	return "", fmt.Errorf("unknown lock type %q", s)
}

// Permission is the resolved method-permission of one method.
type Permission struct {
	Roles     []string
	Unchecked bool
	Excluded  bool
}

// ExceptionPolicy is how the container treats an application exception.
type ExceptionPolicy struct {
	Rollback  bool
	Inherited bool
}

// Reference is an environment entry resolved to a target deployment.
type Reference struct {
	Name         string
	DeploymentID string
	// JndiName is the internal name the entry links to.
	JndiName string
	Local    bool
}

// Binding is one name bound for a bean.
type Binding struct {
	Name   string
	Target string
}
