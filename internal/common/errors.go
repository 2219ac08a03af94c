package common

import "fmt"

// Error category prefixes. ERR and WRONGTYPE cover command errors;
// the only other categories this server raises are NOAUTH (ErrNoAuth)
// and WRONGPASS (a failed AUTH). NOSCRIPT/LOADING/BUSY/MISCONF/READONLY/MOVED/ASK are
// reserved by the RESP error taxonomy but never produced here because
// scripting, replication, clustering and write-fencing are Non-goals.
const (
	CategoryErr       = "ERR"
	CategoryWrongType = "WRONGTYPE"
)

func NewError(format string, args ...interface{}) *Value {
	return NewErrorP(fmt.Sprintf("%s %s", CategoryErr, fmt.Sprintf(format, args...)))
}

func NewWrongType() *Value {
	return NewErrorP(CategoryWrongType + " Operation against a key holding the wrong kind of value")
}

func ErrWrongArgs(cmd string) *Value {
	return NewError("wrong number of arguments for '%s' command", cmd)
}

func ErrSyntax() *Value {
	return NewError("syntax error")
}

func ErrNotInt() *Value {
	return NewError("value is not an integer or out of range")
}

func ErrNotFloat() *Value {
	return NewError("value is not a valid float")
}

func ErrUnknownCommand(cmd string) *Value {
	return NewError("unknown command '%s'", cmd)
}

func ErrNoAuth() *Value {
	return NewErrorP("NOAUTH Authentication required.")
}

func ErrNoTx() *Value {
	return NewError("EXEC without MULTI")
}
