package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add    func(AddArgs) (Result, error)
	Done   func(TargetArgs) (Result, error)
	Mark   func(MarkArgs) (Result, error)
	End    func(EndArgs) (Result, error)
	Delete func(TargetArgs) (Result, error)
	Rearm  func() (Result, error)
	Show   func(ShowArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeDone:
		if handlers.Done == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Done(*cmd.Done)
	case TypeMark:
		if handlers.Mark == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Mark(*cmd.Mark)
	case TypeEnd:
		if handlers.End == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.End(*cmd.End)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Delete(*cmd.Delete)
	case TypeRearm:
		if handlers.Rearm == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Rearm()
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) *CommandError {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
