package main

import (
	"ICSFlowGen/pkg/pcap"
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	limit := flag.Int("n", 5, "Number of packets to print, 0 prints all")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go [-n count] <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	reader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	packets := make(chan *pcap.Packet, 64)
	errCh := make(chan error, 1)
	go func() { errCh <- reader.ReadPackets(packets) }()

	i := 0
	byTransport := make(map[string]int)
	for p := range packets {
		i++
		byTransport[p.Transport.String()]++
		if *limit == 0 || i <= *limit {
			fmt.Printf("[%s] %s:%d -> %s:%d %s\n    %s\n",
				p.Timestamp.Format("15:04:05.000"),
				p.SrcIP, p.SrcPort, p.DstIP, p.DstPort, p.Transport,
				p.Record().String(),
			)
		}
	}
	if err := <-errCh; err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d packets", i)
	for transport, n := range byTransport {
		fmt.Printf(", %s=%d", transport, n)
	}
	fmt.Println()
}
