package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/asticode/go-astidvb"
	"github.com/asticode/go-astikit"
	"github.com/pkg/profile"
)

// Flags
var (
	ctx, cancel     = context.WithCancel(context.Background())
	configPath      = flag.String("c", "", "the yaml config path")
	cpuProfiling    = flag.Bool("cp", false, "if yes, cpu profiling is enabled")
	memoryProfiling = flag.Bool("mp", false, "if yes, memory profiling is enabled")
	tableTypes      = astikit.NewFlagStrings()
)

// Flags overriding the config
func init() {
	flag.Duration("duration", 0, "the maximum duration of the probe")
	flag.String("f", "", "the format (json, text)")
	flag.String("i", "", "the input path (file path, - for stdin or udp://host:port)")
	flag.String("l", "", "the preferred language of texts")
	flag.Bool("p", false, "if yes, the input is a transport stream")
	flag.Duration("timeout", 0, "the maximum duration without data")
}

func main() {
	// Init
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s <tables|scan|events>:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Var(tableTypes, "d", "the table types whitelist (all, bat, eit, nit, pat, sdt, tot)")
	cmd := astikit.FlagCmd()
	flag.Parse()

	// Handle signals
	handleSignals()

	// Load config
	c, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(fmt.Errorf("main: loading config failed: %w", err))
	}
	c.applyFlags(flag.CommandLine)
	if err = c.validate(); err != nil {
		log.Fatal(fmt.Errorf("main: validating config failed: %w", err))
	}

	// Start profiling
	if *cpuProfiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *memoryProfiling {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	// Components built without a logger use the default one
	astidvb.SetLogger(log.Default())

	// Build the reader
	var r io.Reader
	if r, err = buildReader(c.Input); err != nil {
		log.Fatal(fmt.Errorf("main: building reader failed: %w", err))
	}

	// Make sure the reader is closed properly
	if cl, ok := r.(io.Closer); ok {
		defer cl.Close()
	}

	// Transport streams are turned into sections first
	if c.Input.Packets {
		r = astidvb.NewPacketReader(r, astidvb.PacketReaderOptPacketSize(c.Input.PacketSize))
	}

	// Create the demuxer
	dmx := astidvb.NewDemuxer(ctx, r, astidvb.DemuxerOptTimeout(c.Input.Timeout))

	// Create the decoder
	reg := astidvb.NewRegistry()
	var dec *astidvb.Decoder
	var h = &handler{}
	if dec, err = newDecoder(c.Decoder, reg, h); err != nil {
		log.Fatal(fmt.Errorf("main: creating decoder failed: %w", err))
	}

	// Get deadline
	var until time.Time
	if c.Input.Duration > 0 {
		until = time.Now().Add(c.Input.Duration)
	}

	// Switch on command
	switch cmd {
	case "tables":
		if err = tables(dmx, dec, until); err != nil {
			log.Fatal(fmt.Errorf("main: fetching tables failed: %w", err))
		}
	case "scan":
		if err = scan(dmx, dec, reg, h, until); err != nil {
			log.Fatal(fmt.Errorf("main: scanning failed: %w", err))
		}
		if err = output(c.Output, newChannels(reg)); err != nil {
			log.Fatal(fmt.Errorf("main: printing channels failed: %w", err))
		}
	default:
		if err = astidvb.Scan(dmx, dec, until, nil); err != nil {
			log.Fatal(fmt.Errorf("main: scanning events failed: %w", err))
		}
		if err = output(c.Output, newProgrammes(reg, c.Output.Language)); err != nil {
			log.Fatal(fmt.Errorf("main: printing programmes failed: %w", err))
		}
	}
}

func handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch)
	go func() {
		for s := range ch {
			if s != syscall.SIGURG {
				log.Printf("Received signal %s\n", s)
			}
			switch s {
			case syscall.SIGABRT, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
				cancel()
				return
			}
		}
	}()
}

// udpReader buffers datagrams so that small reads don't truncate them
type udpReader struct {
	*bufio.Reader
	*net.UDPConn
}

func (r udpReader) Read(p []byte) (int, error) { return r.Reader.Read(p) }

func buildReader(c InputConfig) (r io.Reader, err error) {
	// Stdin
	if c.Path == "-" {
		r = os.Stdin
		return
	}

	// Parse input
	var u *url.URL
	if u, err = url.Parse(c.Path); err != nil {
		err = fmt.Errorf("main: parsing input path failed: %w", err)
		return
	}

	// Switch on scheme
	switch u.Scheme {
	case "udp":
		// Resolve addr
		var addr *net.UDPAddr
		if addr, err = net.ResolveUDPAddr("udp", u.Host); err != nil {
			err = fmt.Errorf("main: resolving udp addr %s failed: %w", u.Host, err)
			return
		}

		// Listen to multicast UDP
		var conn *net.UDPConn
		if conn, err = net.ListenMulticastUDP("udp", nil, addr); err != nil {
			err = fmt.Errorf("main: listening on multicast udp addr %s failed: %w", u.Host, err)
			return
		}
		conn.SetReadBuffer(1 << 20)
		r = udpReader{Reader: bufio.NewReaderSize(conn, 1<<16), UDPConn: conn}
	default:
		// Open file
		var f *os.File
		if f, err = os.Open(c.Path); err != nil {
			err = fmt.Errorf("main: opening %s failed: %w", c.Path, err)
			return
		}
		r = f
	}
	return
}

func newDecoder(c DecoderConfig, r *astidvb.Registry, h astidvb.Handler) (d *astidvb.Decoder, err error) {
	// Create text decoder
	var td *astidvb.TextDecoder
	if td, err = astidvb.NewTextDecoder(c.Charset); err != nil {
		err = fmt.Errorf("main: creating text decoder failed: %w", err)
		return
	}

	// Create decoder
	d = astidvb.NewDecoder(r,
		astidvb.DecoderOptAcceptBadDates(c.AcceptBadDates),
		astidvb.DecoderOptHandler(h),
		astidvb.DecoderOptIgnoreUpdates(c.IgnoreUpdates),
		astidvb.DecoderOptTextDecoder(td),
		astidvb.DecoderOptTimeOffset(c.TimeOffset),
	)
	return
}

// handler keeps track of what has been decoded
type handler struct {
	events   int
	networks int
	services int
}

func (h *handler) OnEvent(e *astidvb.Event) { h.events++ }

func (h *handler) OnNetwork(n *astidvb.Network) { h.networks++ }

func (h *handler) OnService(s *astidvb.Service) {
	h.services++
	if s.Multiplex != nil {
		s.Multiplex.Data = true
	}
}

func tables(dmx *astidvb.Demuxer, dec *astidvb.Decoder, until time.Time) (err error) {
	// Determine which tables to log
	_, logAll := tableTypes.Map["all"]
	log.Println("Fetching tables...")
	for {
		// Get next table
		var t *astidvb.Table
		if t, err = dmx.NextTable(until); err != nil {
			if errors.Is(err, astidvb.ErrNoMoreTables) {
				err = nil
				break
			}
			err = fmt.Errorf("main: getting next table failed: %w", err)
			return
		}

		// Log table
		if _, ok := tableTypes.Map[strings.ToLower(t.TableID().String())]; logAll || ok || len(tableTypes.Map) == 0 {
			log.Printf("%s: %s\n", t.TableID(), t.Key)
			log.Printf("  Sections: %d\n", len(t.Sections))
			if s := t.Sections[0]; s.Syntax != nil {
				log.Printf("  Version: %d\n", s.Syntax.VersionNumber)
			}
		}

		// Decode
		if errDecode := dec.Decode(t); errDecode != nil {
			log.Printf("  Decoding failed: %s\n", errDecode)
		}
	}
	return
}

// scan reads the network first and then the services of each of its multiplexes
func scan(dmx *astidvb.Demuxer, dec *astidvb.Decoder, r *astidvb.Registry, h *handler, until time.Time) (err error) {
	// Network
	log.Println("Scanning network...")
	if err = astidvb.Scan(dmx, dec, until, func() bool { return h.networks > 0 }); err != nil {
		err = fmt.Errorf("main: scanning network failed: %w", err)
		return
	}

	// Services
	log.Println("Scanning services...")
	if err = astidvb.Scan(dmx, dec, until, func() bool { return h.networks > 0 && multiplexesDone(r) }); err != nil {
		err = fmt.Errorf("main: scanning services failed: %w", err)
		return
	}
	log.Printf("%d network(s) and %d service(s) found\n", len(r.Networks()), len(r.Services()))
	return
}

func multiplexesDone(r *astidvb.Registry) bool {
	for _, n := range r.Networks() {
		for _, m := range n.Multiplexes {
			if m.Data == nil {
				return false
			}
		}
	}
	return true
}

func output(c OutputConfig, v fmt.Stringer) (err error) {
	switch c.Format {
	case "json":
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "  ")
		if err = e.Encode(v); err != nil {
			err = fmt.Errorf("main: json encoding to stdout failed: %w", err)
			return
		}
	default:
		fmt.Println(v)
	}
	return
}
