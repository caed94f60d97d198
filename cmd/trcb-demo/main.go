// Command trcb-demo runs a single TRCB node over the TCP transport,
// broadcasting lines read from stdin and printing every delivery in
// green.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/trcb/pkg/trcb"
	"github.com/jabolina/trcb/pkg/trcb/core"
	"github.com/jabolina/trcb/pkg/trcb/transport"
	"github.com/jabolina/trcb/pkg/trcb/types"
)

var (
	bind       = kingpin.Flag("bind", "Address to listen on.").Default("127.0.0.1:0").String()
	advertise  = kingpin.Flag("advertise", "Address to advertise to peers, if different from --bind.").String()
	peerFlags  = kingpin.Flag("peer", "actor=host:port of a peer to connect to; may be repeated.").Strings()
	deliverLocal = kingpin.Flag("deliver-locally", "Invoke the delivery handler synchronously for our own broadcasts.").Bool()
)

func main() {
	kingpin.Parse()

	out := colorable.NewColorableStdout()
	actor := types.NewActorId()

	var advertiseAddr net.Addr
	if *advertise != "" {
		resolved, err := net.ResolveTCPAddr("tcp", *advertise)
		if err != nil {
			fmt.Fprintf(out, "bad --advertise address: %v\n", err)
			os.Exit(1)
		}
		advertiseAddr = resolved
	}

	tcp, err := transport.NewTCPTransport(*bind, advertiseAddr, 8, 5*time.Second, out)
	if err != nil {
		fmt.Fprintf(out, "failed to start transport: %v\n", err)
		os.Exit(1)
	}
	defer tcp.Close()

	for _, p := range *peerFlags {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 {
			fmt.Fprintf(out, "ignoring malformed --peer %q, want actor=host:port\n", p)
			continue
		}
		tcp.AddPeer(types.ActorId(parts[0]), parts[1])
	}

	conf := trcb.DefaultConfiguration()
	conf.DeliverLocally = *deliverLocal

	metrics := core.NewMetrics(prometheus.DefaultRegisterer, actor.String())
	node := trcb.NewNode(actor, conf, tcp, metrics)
	defer node.Shutdown()

	deliveredColor := color.New(color.FgGreen)
	node.SetDeliveryHandler(func(ts types.VClock, body []byte) error {
		deliveredColor.Fprintf(out, "[delivered %s] %s\n", ts, string(body))
		return nil
	})

	fmt.Fprintf(out, "actor %s listening on %s\n", actor, tcp.LocalAddress())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ts := node.Broadcast([]byte(line))
		fmt.Fprintf(out, "[broadcast %s] %s\n", ts, line)
	}
}
