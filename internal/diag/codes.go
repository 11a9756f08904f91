package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Structural IR problems
	IRInfo               Code = 1000
	IRNoBlocks           Code = 1001
	IRBadEntry           Code = 1002
	IRMissingTerminator  Code = 1003
	IRTerminatorNotLast  Code = 1004
	IRBadTarget          Code = 1005
	IRBadCondition       Code = 1006
	IRDanglingOperand    Code = 1007
	IRInstrOwnership     Code = 1008
	IRHookSignature      Code = 1009
	IRUnsupportedPattern Code = 1010

	// Runtime logging
	LogInfo         Code = 2000
	LogDirMissing   Code = 2001
	LogOpenFailed   Code = 2002
	LogWriteFailed  Code = 2003
	LogBadHistLine  Code = 2004
	LogCloseFailed  Code = 2005
	LogAlreadyClose Code = 2006

	// Front end
	LoadInfo          Code = 3000
	LoadPackageErrors Code = 3001
	LoadNoFunctions   Code = 3002
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	IRInfo:               "IR information",
	IRNoBlocks:           "Function has no blocks",
	IRBadEntry:           "Entry block out of range",
	IRMissingTerminator:  "Block has no terminator",
	IRTerminatorNotLast:  "Terminator in the middle of a block",
	IRBadTarget:          "Branch target does not exist",
	IRBadCondition:       "Conditional branch without boolean condition",
	IRDanglingOperand:    "Operand refers to a missing value",
	IRInstrOwnership:     "Instruction listed in a block that does not own it",
	IRHookSignature:      "Logging hook declared with a conflicting signature",
	IRUnsupportedPattern: "Unsupported IR pattern",
	LogInfo:              "Branch log information",
	LogDirMissing:        "Branch log directory does not exist",
	LogOpenFailed:        "Branch log could not be opened",
	LogWriteFailed:       "Branch log write failed",
	LogBadHistLine:       "Malformed branch history line",
	LogCloseFailed:       "Branch log close failed",
	LogAlreadyClose:      "Branch log already closed",
	LoadInfo:             "Load information",
	LoadPackageErrors:    "Package has errors",
	LoadNoFunctions:      "No functions to analyze",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LOG%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LD%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
