package commands

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/streakly/internal/model"
)

type Type string

const (
	TypeAdd    Type = "add"
	TypeDone   Type = "done"
	TypeMark   Type = "mark"
	TypeEnd    Type = "end"
	TypeDelete Type = "delete"
	TypeRearm  Type = "rearm"
	TypeShow   Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs holds "/add <name> [every:<freq>] [at:HH:MM] [from:YYYY-MM-DD] [until:YYYY-MM-DD]".
type AddArgs struct {
	Name       string
	Frequency  model.Frequency
	TargetTime *model.TimeOfDay
	StartDate  model.Date
	EndDate    *model.Date
}

// Target names a task by its 1-based position in today's list, its id, or its
// name; resolving it is the handler's job.
type TargetArgs struct {
	Target string
}

type MarkArgs struct {
	Target string
	Status model.CompletionStatus
}

type EndArgs struct {
	Target string
	Date   model.Date
}

type ShowArgs struct {
	Subject string
	Target  string
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Done   *TargetArgs
	Mark   *MarkArgs
	End    *EndArgs
	Delete *TargetArgs
	Show   *ShowArgs
}

var frequencyAliases = map[string]model.Frequency{
	"daily":          model.FrequencyDaily,
	"day":            model.FrequencyDaily,
	"alternate":      model.FrequencyAlternateDays,
	"alternate_days": model.FrequencyAlternateDays,
	"other":          model.FrequencyAlternateDays,
	"weekly":         model.FrequencyWeekly,
	"week":           model.FrequencyWeekly,
	"monthly":        model.FrequencyMonthly,
	"month":          model.FrequencyMonthly,
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone:
		return parseDone(input, args)
	case TypeMark:
		return parseMark(input, args)
	case TypeEnd:
		return parseEnd(input, args)
	case TypeDelete, "rm":
		return parseDelete(input, args)
	case TypeRearm:
		return Command{Type: TypeRearm, Raw: input}, nil
	case TypeShow:
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	out := AddArgs{Frequency: model.FrequencyDaily}
	var name []string
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, ":")
		if !ok {
			name = append(name, arg)
			continue
		}
		switch strings.ToLower(key) {
		case "every":
			freq, known := frequencyAliases[strings.ToLower(value)]
			if !known {
				return Command{}, invalid("unknown frequency %q", value)
			}
			out.Frequency = freq
		case "at":
			tod, err := model.ParseTimeOfDay(value)
			if err != nil {
				return Command{}, invalid("at expects HH:MM, got %q", value)
			}
			out.TargetTime = &tod
		case "from":
			d, err := model.ParseDate(value)
			if err != nil {
				return Command{}, invalid("from expects YYYY-MM-DD, got %q", value)
			}
			out.StartDate = d
		case "until":
			d, err := model.ParseDate(value)
			if err != nil {
				return Command{}, invalid("until expects YYYY-MM-DD, got %q", value)
			}
			out.EndDate = &d
		default:
			name = append(name, arg)
		}
	}
	out.Name = strings.TrimSpace(strings.Join(name, " "))
	if out.Name == "" {
		return Command{}, invalid("add requires a name")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &out}, nil
}

func parseDone(raw string, args []string) (Command, error) {
	target, err := target("done", args)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeDone, Raw: raw, Done: &TargetArgs{Target: target}}, nil
}

func parseMark(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("mark requires a task and a status")
	}
	status, err := model.ParseStatus(strings.ToLower(args[len(args)-1]))
	if err != nil {
		return Command{}, invalid("unknown status %q", args[len(args)-1])
	}
	return Command{Type: TypeMark, Raw: raw, Mark: &MarkArgs{Target: strings.Join(args[:len(args)-1], " "), Status: status}}, nil
}

func parseEnd(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("end requires a task")
	}
	out := EndArgs{}
	if d, err := model.ParseDate(args[len(args)-1]); err == nil && len(args) > 1 {
		out.Date = d
		args = args[:len(args)-1]
	}
	out.Target = strings.Join(args, " ")
	return Command{Type: TypeEnd, Raw: raw, End: &out}, nil
}

func parseDelete(raw string, args []string) (Command, error) {
	target, err := target("delete", args)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeDelete, Raw: raw, Delete: &TargetArgs{Target: target}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("show requires a subject")
	}
	subject := strings.ToLower(args[0])
	switch subject {
	case "digest", "today":
		return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject}}, nil
	case "streak", "schedule":
		if len(args) < 2 {
			return Command{}, invalid("show %s requires a task", subject)
		}
		return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject, Target: strings.Join(args[1:], " ")}}, nil
	default:
		return Command{}, invalid("unknown subject %q", subject)
	}
}

func target(verb string, args []string) (string, error) {
	t := strings.TrimSpace(strings.Join(args, " "))
	if t == "" {
		return "", invalid("%s requires a task", verb)
	}
	return t, nil
}

func invalid(format string, args ...any) *CommandError {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}
