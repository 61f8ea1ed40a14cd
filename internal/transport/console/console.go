package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KotFed0t/basket_shares/internal/model"
	"github.com/KotFed0t/basket_shares/internal/service"
	"github.com/shopspring/decimal"
)

const (
	amountPrompt    = "Enter the investment amount: "
	startDatePrompt = "Enter the start date (YYYY-MM-DD): "
	endDatePrompt   = "Enter the end date (YYYY-MM-DD): "
)

// Prompter asks for run parameters line by line, repeating a question until the answer parses.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

func (p *Prompter) AskRunParams(ctx context.Context) (model.RunParams, error) {
	amount, err := ask(ctx, p, amountPrompt, parseAmount)
	if err != nil {
		return model.RunParams{}, err
	}

	start, err := ask(ctx, p, startDatePrompt, parseDate)
	if err != nil {
		return model.RunParams{}, err
	}

	end, err := ask(ctx, p, endDatePrompt, func(s string) (time.Time, error) {
		end, err := parseDate(s)
		if err != nil {
			return time.Time{}, err
		}
		if !end.After(start) {
			return time.Time{}, fmt.Errorf("%w: end date must be after %s", service.ErrInvalidInput, start.Format(time.DateOnly))
		}
		return end, nil
	})
	if err != nil {
		return model.RunParams{}, err
	}

	return model.RunParams{TotalInvestment: amount, StartDate: start, EndDate: end}, nil
}

func ask[T any](ctx context.Context, p *Prompter, prompt string, parse func(string) (T, error)) (T, error) {
	var zero T
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		fmt.Fprint(p.out, prompt)

		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return zero, err
			}
			return zero, fmt.Errorf("%q: %w", strings.TrimSpace(prompt), io.ErrUnexpectedEOF)
		}

		v, err := parse(strings.TrimSpace(p.in.Text()))
		if err == nil {
			return v, nil
		}
		fmt.Fprintf(p.out, "Invalid value: %s\n", err)
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	// digit grouping such as 1,00,000 or 100_000
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %q is not a number", service.ErrInvalidInput, s)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount must be positive", service.ErrInvalidInput)
	}
	return amount, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", service.ErrInvalidInput, s)
	}
	return d, nil
}
