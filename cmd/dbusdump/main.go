// Program dbusdump reads a stream of D-Bus messages from stdin and
// prints one summary line per message, to show how the package can be
// used to consume a message stream without a transport of its own.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/busline/dbus"
)

func main() {
	// By default an exit code is set to indicate a failure since there
	// are more failure scenarios to begin with.
	exitCode := 1
	defer func() { os.Exit(exitCode) }()

	maxSize := flag.Uint("max-size", dbus.DefaultMaxMessageSize, "maximum accepted message size in bytes")
	readSize := flag.Int("read-size", dbus.DefaultAccumulatorReadSize, "chunk size requested from stdin at a time")
	flag.Parse()

	loader := dbus.NewLoader(
		dbus.WithMaxMessageSize(uint32(*maxSize)),
		dbus.WithAccumulatorReadSize(*readSize),
	)

	if err := dump(os.Stdin, loader); err != nil {
		log.Print(err)
		return
	}

	exitCode = 0
}

func dump(r io.Reader, loader *dbus.Loader) error {
	for {
		buf := loader.GetBuffer(0)
		n, err := r.Read(buf)
		loader.ReturnBuffer(n)
		loader.QueueMessages()

		for {
			msg, ok := loader.PopMessage()
			if !ok {
				break
			}
			printMessage(msg)
		}

		if loader.IsCorrupted() {
			return fmt.Errorf("dbusdump: corrupted message stream")
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("dbusdump: read stdin: %w", err)
		}
	}
}

func printMessage(m *dbus.Message) {
	path, _ := m.Path()
	iface, _ := m.Interface()
	member, _ := m.Member()
	errName, _ := m.ErrorName()

	switch m.Type() {
	case dbus.MethodCall:
		fmt.Printf("call  serial=%d %s %s.%s\n", m.Serial(), path, iface, member)
	case dbus.Signal:
		fmt.Printf("signal serial=%d %s %s.%s\n", m.Serial(), path, iface, member)
	case dbus.MethodReply:
		replySerial, _ := m.ReplySerial()
		fmt.Printf("reply serial=%d reply_serial=%d sig=%q\n", m.Serial(), replySerial, m.Signature())
	case dbus.ErrorReply:
		replySerial, _ := m.ReplySerial()
		fmt.Printf("error serial=%d reply_serial=%d name=%s\n", m.Serial(), replySerial, errName)
	}
}
