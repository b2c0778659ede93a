package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"pagedb/internal/pagestore"
	"pagedb/internal/pkg/logging"
)

const (
	cliName           string = "pagedb"
	defaultDbFileName string = "example.db"
)

func printPrompt() {
	fmt.Print(cliName, "> ")
}

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Exit
)

func isMetaCommand(inputBuffer string) bool {
	return len(inputBuffer) > 0 && inputBuffer[:1] == "."
}

func doMetaCommand(inputBuffer string) metaCommand {
	switch inputBuffer {
	case "help":
		return Help
	case "exit":
		return Exit
	default:
		return Unknown
	}
}

func printHelp() {
	fmt.Println(".help            - Show available commands")
	fmt.Println(".exit            - Closes program")
	fmt.Println("alloc            - Allocate a new page")
	fmt.Println("pages            - Show watermark and page size")
	fmt.Println("read <id>        - Hexdump a page")
	fmt.Println("write <id> <txt> - Write text at the start of a page")
}

func execCommand(aStore *pagestore.PageStore, inputBuffer string) {
	fields := strings.Fields(inputBuffer)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "alloc":
		pageID, err := aStore.Allocate()
		if err != nil {
			fmt.Printf("Error allocating page: %s\n", err)
			return
		}
		fmt.Printf("Allocated page %d\n", pageID)
	case "pages":
		fmt.Printf("Watermark: %d, page size: %d\n", aStore.Watermark(), aStore.PageSize())
	case "read":
		if len(fields) != 2 {
			fmt.Println("Usage: read <id>")
			return
		}
		pageID, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			fmt.Printf("Invalid page id: %s\n", fields[1])
			return
		}
		page, err := aStore.Read(pagestore.PageID(pageID))
		if err != nil {
			fmt.Printf("Error reading page: %s\n", err)
			return
		}
		fmt.Print(hex.Dump(page))
	case "write":
		if len(fields) < 3 {
			fmt.Println("Usage: write <id> <txt>")
			return
		}
		pageID, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			fmt.Printf("Invalid page id: %s\n", fields[1])
			return
		}
		payload := strings.Join(fields[2:], " ")
		if err := aStore.Write(pagestore.PageID(pageID), []byte(payload)); err != nil {
			fmt.Printf("Error writing page: %s\n", err)
			return
		}
		fmt.Printf("Wrote %d bytes to page %d\n", len(payload), pageID)
	default:
		fmt.Printf("Unrecognized command: %s\n", fields[0])
	}
}

func main() {
	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flushes buffer, if any

	dataDir := os.Getenv("PAGEDB_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	dbFileName := defaultDbFileName
	if len(os.Args) > 1 {
		dbFileName = os.Args[1]
	}

	aStore, err := pagestore.New(dataDir, dbFileName, pagestore.WithLogger(logger))
	if err != nil {
		panic(err)
	}

	wg := new(sync.WaitGroup)
	wg.Add(1)

	done := make(chan struct{})

	go func() {
		defer wg.Done()
		defer close(done)
		reader := bufio.NewScanner(os.Stdin)
		printPrompt()

		// REPL (Read-eval-print loop) start
		for reader.Scan() {
			inputBuffer := strings.TrimSpace(reader.Text())
			if isMetaCommand(inputBuffer) {
				switch doMetaCommand(inputBuffer[1:]) {
				case Help:
					printHelp()
				case Exit:
					// Return exits with code 0 by default, os.Exit(0)
					// would exit immediately without any defers
					return
				case Unknown:
					fmt.Printf("Unrecognized meta command: %s\n", inputBuffer)
				}
			} else {
				execCommand(aStore, inputBuffer)
			}
			printPrompt()
		}
		// Print an additional line if we encountered an EOF character
		fmt.Println()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-done:
	}

	if err := aStore.Close(); err != nil {
		fmt.Printf("error closing page store: %s\n", err)
	}

	wg.Wait()
}
