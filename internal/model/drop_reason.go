package model

import "strings"

// DropReason tells why the PHY dropped a frame.
type DropReason int

const (
	DropUnknown DropReason = iota
	DropUnsupportedSettings
	DropNotAllowed
	DropErroneousFrame
	DropMPDUWithoutPHYHeader
	DropPreambleDetectFailure
	DropLSIGFailure
	DropSIGAFailure
	DropPreambleDetectionPacketSwitch
	DropFrameCapturePacketSwitch
	DropOBSSPDCCAReset
)

var dropReasonNames = [...]string{
	DropUnknown:                       "UNKNOWN",
	DropUnsupportedSettings:           "UNSUPPORTED_SETTINGS",
	DropNotAllowed:                    "NOT_ALLOWED",
	DropErroneousFrame:                "ERRONEOUS_FRAME",
	DropMPDUWithoutPHYHeader:          "MPDU_WITHOUT_PHY_HEADER",
	DropPreambleDetectFailure:         "PREAMBLE_DETECT_FAILURE",
	DropLSIGFailure:                   "L_SIG_FAILURE",
	DropSIGAFailure:                   "SIG_A_FAILURE",
	DropPreambleDetectionPacketSwitch: "PREAMBLE_DETECTION_PACKET_SWITCH",
	DropFrameCapturePacketSwitch:      "FRAME_CAPTURE_PACKET_SWITCH",
	DropOBSSPDCCAReset:                "OBSS_PD_CCA_RESET",
}

// unknownReasonName is the name of codes outside the enum.
const unknownReasonName = "UNKNOWN_REASON"

func (r DropReason) String() string {
	if r < 0 || int(r) >= len(dropReasonNames) {
		return unknownReasonName
	}
	return dropReasonNames[r]
}

// ParseDropReason maps a reason name back to its code. UNKNOWN_REASON
// parses as DropUnknown. Unrecognised names yield DropUnknown and false.
func ParseDropReason(s string) (DropReason, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == unknownReasonName {
		return DropUnknown, true
	}
	for i, name := range dropReasonNames {
		if name == s {
			return DropReason(i), true
		}
	}
	return DropUnknown, false
}
