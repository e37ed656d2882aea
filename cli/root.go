package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "convert":
		return runConvert(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "serve":
		return runServe(args[1:])
	case "history":
		return runHistory(args[1:])
	case "encoders":
		return runEncoders(args[1:])
	case "token":
		return runToken(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Fprintln(stdout, "webpconv: batch convert image folders to WebP")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Quick Start:")
	fmt.Fprintln(stdout, "  webpconv convert                      (prompts for every option)")
	fmt.Fprintln(stdout, "  webpconv convert --input <dir> [--output <dir>] [--quality 85]")
	fmt.Fprintln(stdout, "  webpconv watch --input <dir>")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  convert   convert every supported image under a folder once")
	fmt.Fprintln(stdout, "  watch     convert, then convert again whenever images change")
	fmt.Fprintln(stdout, "  serve     run the HTTP API with a persistent run queue")
	fmt.Fprintln(stdout, "  history   list recorded runs and their failed files")
	fmt.Fprintln(stdout, "  encoders  list the available WebP encoders")
	fmt.Fprintln(stdout, "  token     issue an API token for serve")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Environment:")
	fmt.Fprintln(stdout, "  WEBPCONV_DATA_DIR     where run history and queues are kept (default ./data)")
	fmt.Fprintln(stdout, "  WEBPCONV_ENCODER      native | cwebp")
	fmt.Fprintln(stdout, "  WEBPCONV_LOG_LEVEL    debug | info | warn | error")
	fmt.Fprintln(stdout, "  WEBPCONV_JWT_SECRET   HMAC secret for API tokens (serve)")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Run 'webpconv <command> -h' for command flags.")
}
