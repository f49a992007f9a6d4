package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/unblurai/unblur/pkg/client"
	"github.com/unblurai/unblur/pkg/session"
)

func main() {
	urlFlag := flag.String("url", "http://localhost:8000", "server url")
	tokenFlag := flag.String("token", "", "server token")
	promptFlag := flag.String("prompt", "", "custom recognition prompt")
	refineFlag := flag.String("refine", "", "refinement instruction")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	options := []client.RequestOption{}

	if *tokenFlag != "" {
		options = append(options, client.WithToken(*tokenFlag))
	}

	c := client.New(*urlFlag, options...)

	path := flag.Arg(0)

	if path == "" {
		val, err := readLine("image: ")

		if err != nil {
			panic(err)
		}

		path = val
	}

	text, err := recognize(ctx, c, path, *promptFlag)

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *refineFlag != "" {
		text, err = refine(ctx, c, text, *refineFlag)

		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		fmt.Println(text)
		return
	}

	chat(ctx, c, text)
}

func recognize(ctx context.Context, c *client.Client, path, prompt string) (string, error) {
	f, err := os.Open(path)

	if err != nil {
		return "", err
	}

	defer f.Close()

	state := session.New()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})

	go func() {
		defer close(done)

		printed := 0

		for snapshot := range state.Subscribe(subCtx) {
			for _, line := range snapshot.StreamingLogs[min(printed, len(snapshot.StreamingLogs)):] {
				fmt.Fprintln(os.Stderr, "  "+line)
			}

			printed = len(snapshot.StreamingLogs)
		}
	}()

	err = c.Uploads.Recognize(ctx, state, client.UploadRequest{
		Name:   path,
		Reader: f,
		Prompt: prompt,
	})

	cancel()
	<-done

	if err != nil {
		return "", err
	}

	result := state.RecognitionResult()

	if result == nil || result.RecognizedText == "" {
		logs := state.StreamingLogs()

		if len(logs) > 0 {
			return "", fmt.Errorf("%s", logs[len(logs)-1])
		}

		return "", fmt.Errorf("no text recognized")
	}

	fmt.Println()
	fmt.Println(result.RecognizedText)
	fmt.Println()

	return result.RecognizedText, nil
}

func refine(ctx context.Context, c *client.Client, text, instruction string) (string, error) {
	result, err := c.Refinements.New(ctx, client.RefinementRequest{
		Text:        text,
		Instruction: instruction,
	})

	if err != nil {
		return "", err
	}

	return *result.RefinedText, nil
}

func chat(ctx context.Context, c *client.Client, text string) {
	original := text
	output := os.Stdout

LOOP:
	for {
		input, err := readLine(">>> ")

		if err != nil {
			return
		}

		if input == "" {
			continue LOOP
		}

		if strings.HasPrefix(input, "/") {
			switch strings.ToLower(input) {
			case "/reset":
				text = original
				output.WriteString(text + "\n\n")
				continue LOOP

			case "/exit", "/quit":
				return

			default:
				output.WriteString("Unknown command\n")
				continue LOOP
			}
		}

		refined, err := refine(ctx, c, text, input)

		if err != nil {
			output.WriteString(err.Error() + "\n")
			continue LOOP
		}

		text = refined

		output.WriteString("\n")
		output.WriteString(text)
		output.WriteString("\n\n")
	}
}

var stdin = bufio.NewReader(os.Stdin)

func readLine(prompt string) (string, error) {
	os.Stdout.WriteString(prompt)

	line, err := stdin.ReadString('\n')

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
