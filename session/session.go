// Package session drives the prescription builder from line commands,
// rendering the view after every command.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/logging"
	"github.com/giygas/prescription-builder/prescription"
)

const helpText = `Commands (positions start at 0):
  generic <name>          choose a generic, clears strength and type
  strength <value>        choose a strength, clears type
  type <value>            choose a dosage form
  resolve                 list brands for generic + strength + type
  add <n>                 add brand n from the list to the prescription
  qty <i> <n>             set quantity of item i
  schedule <i> <value>    set time schedule of item i (1+1+1, 1+0+0, 0+0+1)
  meal <i> <value>        set meal time of item i (After Meal, Before Meal)
  remove <i>              remove item i
  patient <field> <value> name, age, sex, id or next
  export                  render the prescription
  show                    print the current state
  help                    this text
  quit                    leave`

// ErrQuit is returned by Execute for quit and exit.
var ErrQuit = errors.New("quit")

// Session owns one prescription being built.
type Session struct {
	resolver *prescription.Resolver
	cart     *prescription.Cart
	exporter *prescription.Exporter
	patient  entities.PatientInfo
	status   prescription.ExportStatus
	out      io.Writer
}

func New(resolver *prescription.Resolver, exporter *prescription.Exporter, out io.Writer) *Session {
	return &Session{
		resolver: resolver,
		cart:     prescription.NewCart(),
		exporter: exporter,
		out:      out,
	}
}

// Run reads commands from in until EOF, quit or ctx is done. Command errors
// are printed and the session goes on.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(s.out, `Type "help" for commands.`)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		err := s.Execute(ctx, scanner.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "! %v\n", err)
			logging.Debug("Session command rejected", "command", scanner.Text(), "error", err)
		}
	}
}

// Execute runs one command line and prints the resulting view.
func (s *Session) Execute(ctx context.Context, line string) error {
	cmd, args := splitCommand(line)
	if cmd == "" {
		return nil
	}

	var err error
	switch cmd {
	case "generic":
		err = s.resolver.OnFieldChange(ctx, prescription.FieldGeneric, args)
	case "strength":
		err = s.resolver.OnFieldChange(ctx, prescription.FieldStrength, args)
	case "type":
		err = s.resolver.OnFieldChange(ctx, prescription.FieldType, args)
	case "resolve":
		if !s.resolver.ResolveOptions(ctx) {
			fmt.Fprintln(s.out, "Choose generic, strength and type first.")
		}
	case "add":
		err = s.add(args)
	case "qty", "quantity":
		err = s.withPosition(args, func(pos int, rest string) error {
			return s.cart.SetQuantity(pos, rest)
		})
	case "schedule":
		err = s.withPosition(args, func(pos int, rest string) error {
			return s.cart.SetField(pos, prescription.FieldTimeSchedule, rest)
		})
	case "meal":
		err = s.withPosition(args, func(pos int, rest string) error {
			return s.cart.SetField(pos, prescription.FieldMealTime, rest)
		})
	case "remove", "rm":
		err = s.withPosition(args, func(pos int, _ string) error {
			return s.cart.Remove(pos)
		})
	case "patient":
		err = s.setPatient(args)
	case "export":
		s.export(ctx)
	case "show":
	case "help":
		fmt.Fprintln(s.out, helpText)
		return nil
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}

	s.resolver.Wait()
	if rerr := s.render(); rerr != nil {
		return rerr
	}
	return err
}

// Cart exposes the cart being built.
func (s *Session) Cart() *prescription.Cart {
	return s.cart
}

// Patient returns the patient fields entered so far.
func (s *Session) Patient() entities.PatientInfo {
	return s.patient
}

func (s *Session) add(args string) error {
	pos, err := parsePosition(args)
	if err != nil {
		return err
	}
	option, err := s.resolver.Candidate(pos)
	if err != nil {
		return err
	}
	s.cart.Add(option)
	return nil
}

func (s *Session) setPatient(args string) error {
	field, value := splitCommand(args)
	switch field {
	case "name":
		s.patient.Name = value
	case "age":
		s.patient.Age = value
	case "sex":
		s.patient.Sex = value
	case "id", "patient_id":
		s.patient.PatientID = value
	case "next", "next_appointment":
		s.patient.NextAppointment = value
	default:
		return fmt.Errorf("patient field %q: %w", field, prescription.ErrUnknownField)
	}
	return nil
}

func (s *Session) export(ctx context.Context) {
	_, location, err := s.exporter.Export(ctx, s.patient, s.cart)
	switch {
	case err == nil:
		s.status = prescription.ExportStatus{LastArtifact: location}
	case prescription.IsValidation(err):
		s.status = prescription.ExportStatus{LastError: "add at least one medicine before exporting"}
	default:
		s.status = prescription.ExportStatus{LastError: err.Error()}
	}
}

func (s *Session) render() error {
	status := s.status
	status.InFlight = s.exporter.InFlight()
	return prescription.RenderText(s.out, prescription.Project(s.resolver.State(), s.cart.Items(), status))
}

func (s *Session) withPosition(args string, fn func(pos int, rest string) error) error {
	first, rest := splitCommand(args)
	pos, err := parsePosition(first)
	if err != nil {
		return err
	}
	return fn(pos, rest)
}

func parsePosition(raw string) (int, error) {
	pos, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%q is not a position: %w", raw, prescription.ErrIndexOutOfRange)
	}
	return pos, nil
}

// splitCommand splits off the first word; the rest keeps inner spaces.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	head, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(head), strings.TrimSpace(rest)
}
