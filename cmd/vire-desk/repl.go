package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/app"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/bobmcallan/vire-desk/internal/navigator"
	"github.com/bobmcallan/vire-desk/internal/render"
)

const helpText = `Commands:
  login <username> <password>
  register <username> <password> <investor|analyst>
  logout
  whoami
  view <chat|portfolio|reports|investors>
  show                         render the current view
  analyze <SYMBOL>
  qty <entry#> <quantity>      set the trade quantity of an analysis entry
  buy <entry#>                 buy the drafted quantity at the analyzed price
  buy <SYMBOL> <qty> <price>
  sell <entry#>
  sell <SYMBOL> <qty> <price>
  remove <SYMBOL>
  investors                    analyst: list investors
  select <investor id>         analyst: open an investor
  back                         analyst: return to the list
  help
  quit
`

// repl drives the application from line-oriented input.
type repl struct {
	app *app.App
	in  io.Reader
	out io.Writer
}

func newREPL(a *app.App, in io.Reader, out io.Writer) *repl {
	return &repl{app: a, in: in, out: out}
}

// Run reads commands until EOF, quit, or ctx is done.
func (r *repl) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "vire-desk. Type `help` for commands.")
	r.show()

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, r.prompt())
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		if quit := r.exec(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

func (r *repl) prompt() string {
	if role := r.app.Session.Role(); role != "" {
		return fmt.Sprintf("vire[%s]> ", role)
	}
	return "vire> "
}

// exec runs one command line and reports whether the session should end.
func (r *repl) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprint(r.out, helpText)
	case "login":
		if len(args) != 2 {
			err = usage("login <username> <password>")
			break
		}
		if _, err = r.app.Login(ctx, args[0], args[1]); err == nil {
			r.show()
		}
	case "register":
		if len(args) != 3 {
			err = usage("register <username> <password> <investor|analyst>")
			break
		}
		role, ok := models.ParseRole(args[2])
		if !ok {
			err = fmt.Errorf("role must be investor or analyst")
			break
		}
		if err = r.app.Register(ctx, args[0], args[1], role); err == nil {
			fmt.Fprintln(r.out, "Registered. You can now log in.")
		}
	case "logout":
		if err = r.app.Logout(ctx); err == nil {
			fmt.Fprintln(r.out, "Logged out.")
		}
	case "whoami":
		snap := r.app.Snapshot()
		fmt.Fprint(r.out, render.Session(snap.Authenticated, snap.Role, snap.State, snap.Allowed))
	case "view":
		if len(args) != 1 {
			err = usage("view <chat|portfolio|reports|investors>")
			break
		}
		if err = r.app.Navigate(navigator.View(strings.ToLower(args[0]))); err == nil {
			r.show()
		}
	case "investors":
		if err = r.app.Navigate(navigator.ViewInvestors); err == nil {
			r.show()
		}
	case "select":
		var id int64
		if len(args) != 1 {
			err = usage("select <investor id>")
			break
		}
		if id, err = strconv.ParseInt(args[0], 10, 64); err != nil {
			err = fmt.Errorf("investor id must be a number")
			break
		}
		if err = r.app.SelectInvestorByID(id); err == nil {
			r.show()
		}
	case "back":
		if err = r.app.Back(); err == nil {
			r.show()
		}
	case "show":
		r.show()
	case "analyze":
		if len(args) != 1 {
			err = usage("analyze <SYMBOL>")
			break
		}
		var result models.AnalysisResult
		if result, err = r.app.Analyze(ctx, args[0]); err == nil {
			fmt.Fprintf(r.out, "### [%d]\n", r.app.Analysis.Len())
			fmt.Fprint(r.out, render.Analysis(result))
		}
	case "qty":
		err = r.setQuantity(args)
	case "buy", "sell":
		err = r.trade(ctx, cmd, args)
	case "remove":
		if len(args) != 1 {
			err = usage("remove <SYMBOL>")
			break
		}
		if err = r.app.Remove(ctx, args[0]); err == nil {
			r.show()
		}
	default:
		err = fmt.Errorf("unknown command %q, type `help`", cmd)
	}

	if err != nil {
		fmt.Fprintf(r.out, "Error: %s\n", err)
	}
	return false
}

func (r *repl) setQuantity(args []string) error {
	if len(args) != 2 {
		return usage("qty <entry#> <quantity>")
	}
	id, err := r.entryID(args[0])
	if err != nil {
		return err
	}
	qty, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("quantity must be a number")
	}
	if err := r.app.SetDraftQuantity(id, qty); err != nil {
		return err
	}
	d, _ := r.app.Analysis.Draft(id)
	fmt.Fprintf(r.out, "%s: %s x %s = %s\n", d.Symbol,
		common.FormatQuantity(d.Quantity), common.FormatMoney(d.Price), common.FormatMoney(d.Total))
	return nil
}

func (r *repl) trade(ctx context.Context, cmd string, args []string) error {
	switch len(args) {
	case 1:
		id, err := r.entryID(args[0])
		if err != nil {
			return err
		}
		if cmd == "buy" {
			err = r.app.BuyEntry(ctx, id)
		} else {
			err = r.app.SellEntry(ctx, id)
		}
		if err != nil {
			return err
		}
	case 3:
		qty, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("quantity must be a number")
		}
		price, err := decimal.NewFromString(args[2])
		if err != nil {
			return fmt.Errorf("price must be a number")
		}
		if cmd == "buy" {
			err = r.app.Buy(ctx, args[0], qty, price)
		} else {
			err = r.app.Sell(ctx, args[0], qty, price)
		}
		if err != nil {
			return err
		}
	default:
		return usage(cmd + " <entry#> | " + cmd + " <SYMBOL> <qty> <price>")
	}

	snap := r.app.Snapshot()
	fmt.Fprint(r.out, render.Holdings("Portfolio", snap.Holdings, snap.Summary))
	return nil
}

// entryID resolves a 1-based entry number from the chat log.
func (r *repl) entryID(arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("entry must be a number, see `view chat`")
	}
	entries := r.app.Analysis.Entries()
	if n < 1 || n > len(entries) {
		return "", fmt.Errorf("no analysis entry %d", n)
	}
	return entries[n-1].ID, nil
}

// show waits for the current view's loads and renders it.
func (r *repl) show() {
	r.app.Wait()
	fmt.Fprint(r.out, render.View(r.app.Snapshot()))
}

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}
