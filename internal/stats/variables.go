package stats

// Variable names shared by the producers a run registers and the metrics
// derived from the export.
const (
	VarSenderTxPackets   = "sender-tx-packets"
	VarReceiverRxPackets = "receiver-rx-packets"
	VarDelay             = "delay"

	VarMacTxFrames = "mac-tx-frames"
	VarMacRxFrames = "mac-rx-frames"

	VarPhyDropCount = "phy-mpdu-drop-count"
	VarPhyDropBytes = "phy-mpdu-drop-bytes"
	VarPhyRxCount   = "phy-mpdu-rx-count"
	VarPhyRxBytes   = "phy-mpdu-rx-bytes"
	VarPhyTxCount   = "phy-mpdu-tx-count"
	VarPhyTxBytes   = "phy-mpdu-tx-bytes"
	VarPhyRxRSSSum  = "phy-mpdu-rx-rss-sum"
)
