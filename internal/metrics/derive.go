package metrics

import (
	"strconv"
	"time"

	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/stats"
)

// Header sizes added to the application payload to get the MAC payload.
const (
	UDPHeaderBytes  = 8
	IPv4HeaderBytes = 20
)

// RunConfig is the part of the experiment configuration the metrics need.
type RunConfig struct {
	Duration   time.Duration
	PacketSize int
	Stations   int
}

// Report holds every derived metric of a run. Rates are in kbps, delay in
// milliseconds and signal in dBm.
type Report struct {
	AppTxRate Value `json:"app_tx_rate_kbps"`
	AppRxRate Value `json:"app_rx_rate_kbps"`
	AppLoss   Value `json:"app_loss_ratio"`
	AppDelay  Value `json:"app_avg_delay_ms"`
	MacTxRate Value `json:"mac_tx_rate_kbps"`
	MacRxRate Value `json:"mac_rx_rate_kbps"`
	MacLoss   Value `json:"mac_loss_ratio"`
	PhyTxRate Value `json:"phy_tx_rate_kbps"`
	PhyRxRate Value `json:"phy_rx_rate_kbps"`
	PhyLoss   Value `json:"phy_loss_ratio"`
	PhyRSS    Value `json:"phy_avg_rss_dbm"`
}

// Row is one line of a rendered report. Key matches the JSON field name.
type Row struct {
	Key   string
	Name  string
	Value Value
}

// Rows lists the report in presentation order.
func (r *Report) Rows() []Row {
	return []Row{
		{"app_tx_rate_kbps", "[App] Offered load (kbps)", r.AppTxRate},
		{"app_rx_rate_kbps", "[App] Throughput (kbps)", r.AppRxRate},
		{"app_loss_ratio", "[App] Loss ratio", r.AppLoss},
		{"app_avg_delay_ms", "[App] Average delay (ms)", r.AppDelay},
		{"mac_tx_rate_kbps", "[MAC] Data TX rate (kbps)", r.MacTxRate},
		{"mac_rx_rate_kbps", "[MAC] Data RX rate (kbps)", r.MacRxRate},
		{"mac_loss_ratio", "[MAC] Data loss ratio", r.MacLoss},
		{"phy_tx_rate_kbps", "[PHY] Data TX rate (kbps)", r.PhyTxRate},
		{"phy_rx_rate_kbps", "[PHY] Data RX rate (kbps)", r.PhyRxRate},
		{"phy_loss_ratio", "[PHY] Data loss ratio", r.PhyLoss},
		{"phy_avg_rss_dbm", "[PHY] Average RSS (dBm)", r.PhyRSS},
	}
}

// Rate converts an aggregate counter into kbps. bitsPerUnit is the number
// of bits one unit of the counter stands for.
func Rate(fe *export.FlatExport, variable string, bitsPerUnit float64, d time.Duration) Value {
	if d <= 0 {
		return NoData()
	}
	units := fe.Get(stats.Key(variable, stats.AggregateContext))
	return Some(units * bitsPerUnit / d.Seconds() / 1000)
}

// LossRatio is (tx - rx) / tx with a negative numerator floored at 0.
func LossRatio(tx, rx float64) Value {
	if tx <= 0 {
		return NoData()
	}
	lost := tx - rx
	if lost < 0 {
		lost = 0
	}
	return Some(lost / tx)
}

// AverageDelay is the mean of the per-station average delays present in
// the export, in milliseconds. Stations without samples do not contribute.
func AverageDelay(fe *export.FlatExport, stations int) Value {
	var sum float64
	var n int
	for i := 1; i <= stations; i++ {
		if v, ok := fe.Value(stats.SummaryKey(stats.VarDelay, stats.NodeContext(i), stats.SuffixAvg)); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return NoData()
	}
	return Some(sum / float64(n) * 1000)
}

// AverageSignal is the signal sum divided by the received frame count.
func AverageSignal(fe *export.FlatExport) Value {
	rx := fe.Get(stats.Key(stats.VarPhyRxCount, stats.AggregateContext))
	if rx <= 0 {
		return NoData()
	}
	return Some(fe.Get(stats.Key(stats.VarPhyRxRSSSum, stats.AggregateContext)) / rx)
}

// Derive computes the full report. The export is only read.
func Derive(fe *export.FlatExport, cfg RunConfig) *Report {
	appBits := float64(cfg.PacketSize * 8)
	macBits := float64((cfg.PacketSize + UDPHeaderBytes + IPv4HeaderBytes) * 8)
	agg := func(variable string) float64 {
		return fe.Get(stats.Key(variable, stats.AggregateContext))
	}

	return &Report{
		AppTxRate: Rate(fe, stats.VarSenderTxPackets, appBits, cfg.Duration),
		AppRxRate: Rate(fe, stats.VarReceiverRxPackets, appBits, cfg.Duration),
		AppLoss:   LossRatio(agg(stats.VarSenderTxPackets), agg(stats.VarReceiverRxPackets)),
		AppDelay:  AverageDelay(fe, cfg.Stations),
		MacTxRate: Rate(fe, stats.VarMacTxFrames, macBits, cfg.Duration),
		MacRxRate: Rate(fe, stats.VarMacRxFrames, macBits, cfg.Duration),
		MacLoss:   LossRatio(agg(stats.VarMacTxFrames), agg(stats.VarMacRxFrames)),
		PhyTxRate: Rate(fe, stats.VarPhyTxBytes, 8, cfg.Duration),
		PhyRxRate: Rate(fe, stats.VarPhyRxBytes, 8, cfg.Duration),
		PhyLoss:   LossRatio(agg(stats.VarPhyTxCount), agg(stats.VarPhyRxCount)),
		PhyRSS:    AverageSignal(fe),
	}
}

// ConfigFromExport recovers the run parameters from the metadata of a
// stored export. Missing or malformed entries are left at zero.
func ConfigFromExport(fe *export.FlatExport) RunConfig {
	var cfg RunConfig
	if v, ok := fe.Metadata(stats.MetaDuration); ok {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Duration = time.Duration(secs * float64(time.Second))
		}
	}
	if v, ok := fe.Metadata(stats.MetaPacketSize); ok {
		cfg.PacketSize, _ = strconv.Atoi(v)
	}
	if v, ok := fe.Metadata(stats.MetaStaNum); ok {
		cfg.Stations, _ = strconv.Atoi(v)
	}
	return cfg
}
