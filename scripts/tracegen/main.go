package main

import (
	"bufio"
	"flag"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/engine/protocol"
	"github.com/networmix/ee500-wifi/internal/logger"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/probe/persistent"
	"go.uber.org/zap"
)

// Frame overhead on top of the UDP payload: UDP, IPv4, LLC/SNAP, QoS data
// header and FCS.
const frameOverhead = 8 + 20 + 8 + 26 + 4

func main() {
	outputFile := flag.String("o", "run.jsonl", "Output file path")
	format := flag.String("format", config.EncodingJSONL, "Output format: jsonl or pcap")
	stations := flag.Int("stations", 2, "Number of stations")
	packets := flag.Int("c", 1000, "Packets sent to each station")
	size := flag.Int("size", 1000, "Application packet size in bytes")
	interval := flag.Duration("interval", time.Millisecond, "Time between two packets to one station")
	loss := flag.Float64("loss", 0.05, "Probability that the PHY drops a frame")
	ampdu := flag.Int("ampdu", 4, "Maximum frames per aggregate; 1 disables aggregation")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	log, err := logger.New(config.LogConfig{Level: "info"})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatal("Failed to create output file", zap.Error(err))
	}
	defer f.Close()
	buf := bufio.NewWriter(f)
	defer buf.Flush()

	var encode func(model.Event) error
	switch *format {
	case config.EncodingJSONL:
		encode = func(ev model.Event) error { return protocol.EncodeTrace(buf, ev) }
	case config.EncodingPcap:
		w := pcapgo.NewWriter(buf)
		if err := w.WriteFileHeader(65536, layers.LinkTypeIEEE80211Radio); err != nil {
			log.Fatal("Failed to write pcap header", zap.Error(err))
		}
		encode = persistent.NewPcapEncoder(w, time.Now()).Encode
	default:
		log.Fatal("Unknown format", zap.String("format", *format))
	}

	g := &generator{
		rng:      rand.New(rand.NewSource(*seed)),
		hub:      net.HardwareAddr{0, 0, 0, 0, 0, 1},
		size:     *size,
		interval: *interval,
		loss:     *loss,
		ampdu:    *ampdu,
	}
	if g.ampdu < 1 {
		g.ampdu = 1
	}

	log.Info("Generating run",
		zap.String("output", *outputFile), zap.String("format", *format),
		zap.Int("stations", *stations), zap.Int("packets", *packets))

	var events int
	for i := 1; i <= *stations; i++ {
		sta := net.HardwareAddr{0, 0, 0, 0, 0, byte(i + 1)}
		for _, ev := range g.station(i, sta, *packets) {
			if err := encode(ev); err != nil {
				log.Fatal("Failed to write event", zap.Error(err))
			}
			events++
		}
	}

	log.Info("Run generated", zap.Int("events", events))
}

type generator struct {
	rng      *rand.Rand
	hub      net.HardwareAddr
	size     int
	interval time.Duration
	loss     float64
	ampdu    int
}

// station generates the downlink traffic to station i, sent in bursts of
// up to ampdu packets that share one aggregate.
func (g *generator) station(i int, sta net.HardwareAddr, packets int) []model.Event {
	var events []model.Event
	offset := time.Duration(i) * g.interval / 10

	for k := 0; k < packets; k += g.ampdu {
		burst := g.ampdu
		if packets-k < burst {
			burst = packets - k
		}

		first := offset + time.Duration(k)*g.interval
		for j := 0; j < burst; j++ {
			events = append(events, model.AppTx{At: first + time.Duration(j)*g.interval, Node: i, Size: g.size})
		}

		airAt := first + time.Duration(burst)*g.interval
		var received []model.Frame
		var sent []time.Duration
		for j := 0; j < burst; j++ {
			f := model.Frame{
				Type:        layers.Dot11TypeDataQOSData,
				Source:      g.hub,
				Destination: sta,
				BSSID:       g.hub,
				Length:      g.size + frameOverhead,
			}
			events = append(events, model.MacTx{At: airAt, Frame: f})
			if g.rng.Float64() < g.loss {
				events = append(events, model.PhyDrop{At: airAt, Station: i, Frame: f, Reason: model.DropPreambleDetectFailure})
				continue
			}
			f.SignalDBm, f.HasSignal = -40-20*g.rng.Float64(), true
			received = append(received, f)
			sent = append(sent, first+time.Duration(j)*g.interval)
		}
		if len(received) == 0 {
			continue
		}

		var tx model.Transmission = received[0]
		if g.ampdu > 1 {
			tx = model.Batch{Subframes: received}
		}
		rxAt := airAt + 100*time.Microsecond
		events = append(events, model.PhyRx{At: rxAt, Station: i, Tx: tx, SignalDBm: received[0].SignalDBm})
		for j, f := range received {
			events = append(events, model.MacRx{At: rxAt, Frame: f})
			events = append(events, model.AppRx{At: rxAt + 50*time.Microsecond, Node: i, Size: g.size, SentAt: sent[j]})
		}
	}
	return events
}
