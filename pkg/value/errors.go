package value

// ErrorKind enumerates the spreadsheet error codes. Errors are values,
// not Go errors: they live in cells and propagate through operators.
type ErrorKind uint8

const (
	ErrNull ErrorKind = iota + 1
	ErrDiv0
	ErrValue
	ErrRef
	ErrName
	ErrNum
	ErrNA
	ErrGettingData
	ErrSpill
	ErrCalc
)

var errorCodes = map[ErrorKind]string{
	ErrNull:        "#NULL!",
	ErrDiv0:        "#DIV/0!",
	ErrValue:       "#VALUE!",
	ErrRef:         "#REF!",
	ErrName:        "#NAME?",
	ErrNum:         "#NUM!",
	ErrNA:          "#N/A",
	ErrGettingData: "#GETTING_DATA",
	ErrSpill:       "#SPILL!",
	ErrCalc:        "#CALC!",
}

func (k ErrorKind) String() string {
	if s, ok := errorCodes[k]; ok {
		return s
	}
	return "#VALUE!"
}

// ParseErrorCode maps an error literal like "#DIV/0!" to its kind.
func ParseErrorCode(s string) (ErrorKind, bool) {
	for k, code := range errorCodes {
		if code == s {
			return k, true
		}
	}
	return 0, false
}

// ErrorType returns the ERROR.TYPE ordinal for k, or 0 when the kind
// has no conventional ordinal.
func (k ErrorKind) ErrorType() int {
	switch k {
	case ErrNull:
		return 1
	case ErrDiv0:
		return 2
	case ErrValue:
		return 3
	case ErrRef:
		return 4
	case ErrName:
		return 5
	case ErrNum:
		return 6
	case ErrNA:
		return 7
	case ErrGettingData:
		return 8
	case ErrSpill:
		return 9
	case ErrCalc:
		return 14
	}
	return 0
}
