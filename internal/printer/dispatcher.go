package printer

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"pos-core/internal/eventbus"
	"pos-core/internal/logger"
	"pos-core/internal/models"

	"github.com/google/uuid"
)

// Transport delivers a rendered payload to one printer.
type Transport interface {
	Print(ctx context.Context, addr string, payload []byte) error
}

// TCPTransport writes raw text to a network printer, port 9100 style.
type TCPTransport struct {
	DialTimeout time.Duration
}

func (t *TCPTransport) Print(ctx context.Context, addr string, payload []byte) error {
	dialer := net.Dialer{Timeout: t.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("printer %s unreachable: %w", addr, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(t.DialTimeout))
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("printer %s write failed: %w", addr, err)
	}
	return nil
}

// SettingsReader provides the restaurant identity for receipt headers.
type SettingsReader interface {
	Identity(ctx context.Context) (Identity, error)
}

// KitchenDirectory resolves preparation stations and their printers.
type KitchenDirectory interface {
	Kitchens(ctx context.Context) ([]models.Kitchen, error)
}

type Notifier interface {
	Publish(kind string, subject int64)
}

type job struct {
	kitchen *KitchenTicket
	receipt *Receipt
}

// Dispatcher runs print jobs on a background worker so that a slow or
// unreachable printer can never stall order-taking or checkout. Failed
// jobs are retried once, then reported on the event bus as a non-fatal
// warning.
type Dispatcher struct {
	Transport   Transport
	Settings    SettingsReader
	Kitchens    KitchenDirectory
	Bus         Notifier
	Logger      *logger.Logger
	ReceiptAddr string

	jobs chan job
}

func NewDispatcher(transport Transport, settings SettingsReader, kitchens KitchenDirectory, bus Notifier, log *logger.Logger, receiptAddr string, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		Transport:   transport,
		Settings:    settings,
		Kitchens:    kitchens,
		Bus:         bus,
		Logger:      log,
		ReceiptAddr: receiptAddr,
		jobs:        make(chan job, queueSize),
	}
}

// Start launches the worker. It drains the queue until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case j := <-d.jobs:
				d.run(ctx, j)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// EnqueueKitchenTicket queues a kitchen ticket. Never blocks; when the
// queue is full the job is dropped and reported.
func (d *Dispatcher) EnqueueKitchenTicket(ticket KitchenTicket) {
	ticket.JobID = uuid.NewString()
	d.enqueue(job{kitchen: &ticket}, ticket.JobID)
}

// EnqueueReceipt queues a cash receipt.
func (d *Dispatcher) EnqueueReceipt(receipt Receipt) {
	receipt.JobID = uuid.NewString()
	d.enqueue(job{receipt: &receipt}, receipt.JobID)
}

func (d *Dispatcher) enqueue(j job, jobID string) {
	select {
	case d.jobs <- j:
	default:
		d.Logger.Error("PRINTER", fmt.Sprintf("print queue full, dropping job %s", jobID))
		d.Bus.Publish(eventbus.KindPrintErrors, 0)
	}
}

func (d *Dispatcher) run(ctx context.Context, j job) {
	var err error
	switch {
	case j.kitchen != nil:
		err = d.printKitchenTicket(ctx, *j.kitchen)
	case j.receipt != nil:
		err = d.printReceipt(ctx, *j.receipt)
	}
	if err != nil {
		d.Logger.Error("PRINTER", err.Error())
		d.Bus.Publish(eventbus.KindPrintErrors, 0)
	}
}

// printKitchenTicket routes the ticket's lines to their preparation
// stations: each station gets a ticket holding only its own lines.
func (d *Dispatcher) printKitchenTicket(ctx context.Context, ticket KitchenTicket) error {
	kitchens, err := d.Kitchens.Kitchens(ctx)
	if err != nil {
		return fmt.Errorf("kitchen lookup failed for check #%d: %w", ticket.CheckNumber, err)
	}

	byID := make(map[string]models.Kitchen, len(kitchens))
	for _, k := range kitchens {
		byID[strconv.FormatInt(k.ID, 10)] = k
	}

	grouped := make(map[string][]TicketLine)
	for _, line := range ticket.Lines {
		grouped[line.Destination] = append(grouped[line.Destination], line)
	}

	var firstErr error
	for destination, lines := range grouped {
		kitchen, ok := byID[destination]
		if !ok || kitchen.PrinterAddr == "" {
			d.Logger.Warn("PRINTER", fmt.Sprintf("no printer for destination %q, check #%d", destination, ticket.CheckNumber))
			continue
		}

		station := ticket
		station.Lines = lines
		payload := RenderKitchenTicket(station, kitchen.Name)
		addr := net.JoinHostPort(kitchen.PrinterAddr, strconv.Itoa(kitchen.PrinterPort))

		if err := d.send(ctx, addr, payload); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d.Logger.LogPrinter(ticket.JobID, kitchen.Name, fmt.Sprintf("check #%d sent", ticket.CheckNumber))
	}
	return firstErr
}

func (d *Dispatcher) printReceipt(ctx context.Context, receipt Receipt) error {
	if d.ReceiptAddr == "" {
		d.Logger.Warn("PRINTER", "no receipt printer configured")
		return nil
	}

	identity, err := d.Settings.Identity(ctx)
	if err != nil {
		return fmt.Errorf("settings lookup failed for check #%d: %w", receipt.CheckNumber, err)
	}

	payload := RenderReceipt(receipt, identity)
	if err := d.send(ctx, d.ReceiptAddr, payload); err != nil {
		return err
	}
	d.Logger.LogPrinter(receipt.JobID, d.ReceiptAddr, fmt.Sprintf("check #%d printed", receipt.CheckNumber))
	return nil
}

// send tries once and retries once. Thermal printers drop connections
// between jobs often enough that a single retry pays for itself.
func (d *Dispatcher) send(ctx context.Context, addr string, payload []byte) error {
	err := d.Transport.Print(ctx, addr, payload)
	if err == nil {
		return nil
	}
	return d.Transport.Print(ctx, addr, payload)
}
