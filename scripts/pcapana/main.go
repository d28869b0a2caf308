package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/gopacket/pcapgo"
	"github.com/networmix/ee500-wifi/internal/engine/protocol"
)

// Prints the first frames of a RadioTap capture as decoded by the engine.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go <path_to_pcap_file> [count]")
		os.Exit(1)
	}
	limit := 5
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid count:", err)
			os.Exit(1)
		}
		limit = n
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Println("Open error:", err)
		os.Exit(1)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		fmt.Println("Read error:", err)
		os.Exit(1)
	}
	fmt.Println("Link type:", r.LinkType())

	for i := 0; i < limit; i++ {
		data, ci, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Println("Read error:", err)
			break
		}
		c, err := protocol.ParseFrame(data, ci)
		if err != nil {
			fmt.Println("Parse error:", err)
			continue
		}
		fr := c.Frame
		fmt.Printf("[%s] %s %s -> %s bssid=%s len=%d signal=%v/%.0f fcs_bad=%v retry=%v ampdu=%v/%d/%v\n",
			ci.Timestamp.Format("15:04:05.000000"),
			fr.Type, fr.Source, fr.Destination, fr.BSSID, fr.Length,
			c.HasSignal, c.SignalDBm, c.BadFCS, c.Retry,
			c.InAMPDU, c.AMPDURef, c.LastAMPDU,
		)
	}
}
