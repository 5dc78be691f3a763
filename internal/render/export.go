package render

import (
	"errors"
	"fmt"

	"github.com/retroenv/psgtracker/internal/compiler"
	"github.com/retroenv/psgtracker/internal/driver"
	"github.com/retroenv/psgtracker/internal/nsf"
	"github.com/retroenv/psgtracker/internal/song"
	"github.com/retroenv/retrogolib/log"
)

// Memory layout of exported images.
const (
	prgStart        = 0x8000
	compressedLimit = 0xC000
	linearSpace     = 0x8000
	bankedSpace     = 0x80000
	prgSize         = 0x8000
)

// Exporter compiles documents and combines the music data with the driver.
type Exporter struct {
	logger  *log.Logger
	driver  *driver.Driver
	options compiler.Options
}

// NewExporter returns an exporter for the driver. The driver size and the
// bank switching options are set for each export.
func NewExporter(logger *log.Logger, drv *driver.Driver, options compiler.Options) *Exporter {
	return &Exporter{
		logger:  logger,
		driver:  drv,
		options: options,
	}
}

// Compile compiles the document for the driver of the exporter.
func (e *Exporter) Compile(doc *song.Document, allowBankSwitching bool) (*compiler.Result, error) {
	opts := e.options
	opts.DriverSize = e.driver.Size()
	opts.AllowBankSwitching = allowBankSwitching

	result, err := compiler.New(doc, opts, e.logger).Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling music data: %w", err)
	}
	return result, nil
}

// BIN returns the music data without driver.
func (e *Exporter) BIN(doc *song.Document) ([]byte, error) {
	result, err := e.Compile(doc, false)
	if err != nil {
		return nil, err
	}
	e.logStatistics(result)
	return Binary(result.Chunks), nil
}

// NSF returns an NSF file of the document.
func (e *Exporter) NSF(doc *song.Document, region nsf.Region) ([]byte, error) {
	result, err := e.Compile(doc, true)
	if err != nil {
		return nil, err
	}

	driverSize := e.driver.Size()
	compressed := !result.BankSwitched && compressedLimit-driverSize-result.DataSize >= prgStart

	var loadAddress, driverAddress, musicAddress uint16
	if compressed {
		loadAddress = uint16(compressedLimit - driverSize - result.DataSize)
		driverAddress = uint16(compressedLimit - driverSize)
		musicAddress = loadAddress
	} else {
		loadAddress = prgStart
		driverAddress = prgStart
		musicAddress = uint16(prgStart + driverSize)
	}

	image, err := e.driver.Load(driverAddress, doc.VibratoStyle, musicAddress)
	if err != nil {
		return nil, fmt.Errorf("loading driver: %w", err)
	}

	header := nsf.Header{
		TotalSongs:   uint8(len(doc.Tracks)),
		StartingSong: 1,
		LoadAddress:  loadAddress,
		InitAddress:  driverAddress + driver.InitOffset,
		PlayAddress:  driverAddress + driver.PlayOffset,
		Title:        doc.Title,
		Artist:       doc.Artist,
		Copyright:    doc.Copyright,
		Region:       region,
		SoundChip:    doc.Expansion,
	}
	if doc.EngineSpeed == 0 {
		header.SpeedNTSC = nsf.PlaySpeed(60)
		header.SpeedPAL = nsf.PlaySpeed(50)
	} else {
		header.SpeedNTSC = nsf.PlaySpeed(doc.EngineSpeed)
		header.SpeedPAL = header.SpeedNTSC
	}
	if result.BankSwitched {
		header.Banks = nsf.BankSwitchedBanks(result.LastBank)
	}

	buf := header.Bytes()
	switch {
	case compressed:
		buf = append(buf, Binary(result.Chunks)...)
		buf = append(buf, image...)
	case result.BankSwitched:
		buf = append(buf, image...)
		buf = append(buf, Banked(result)...)
	default:
		buf = append(buf, image...)
		buf = append(buf, Binary(result.Chunks)...)
	}

	e.logStatistics(result)
	e.logger.Info("NSF layout",
		log.String("type", nsfType(compressed, result.BankSwitched)),
		log.Hex("load", loadAddress),
		log.Hex("init", header.InitAddress),
		log.Hex("play", header.PlayAddress),
		log.Stringer("region", region))
	return buf, nil
}

func nsfType(compressed, bankSwitched bool) string {
	switch {
	case compressed:
		return "compressed"
	case bankSwitched:
		return "bank switched"
	default:
		return "linear"
	}
}

// NES returns an iNES ROM image of the document.
func (e *Exporter) NES(doc *song.Document) ([]byte, error) {
	prg, err := e.PRG(doc)
	if err != nil {
		return nil, err
	}
	return NESImage(prg), nil
}

// NESImage prefixes the program image with an iNES header without CHR.
func NESImage(prg []byte) []byte {
	header := nsf.INESHeader(uint8(len(prg)/0x4000), 0)
	return append(header, prg...)
}

// PRG returns the 32 KiB program image of the document: driver, music data
// and the reset caller at the end of the address space.
func (e *Exporter) PRG(doc *song.Document) ([]byte, error) {
	if doc.Expansion != song.ExpansionNone {
		return nil, fmt.Errorf("%w: NES images can not use expansion chips", compiler.ErrExpansionUnsupported)
	}
	result, err := e.Compile(doc, false)
	if err != nil {
		return nil, err
	}

	driverSize := e.driver.Size()
	image, err := e.driver.Load(prgStart, doc.VibratoStyle, uint16(prgStart+driverSize))
	if err != nil {
		return nil, fmt.Errorf("loading driver: %w", err)
	}

	prg := make([]byte, 0, prgSize)
	prg = append(prg, image...)
	prg = append(prg, Binary(result.Chunks)...)
	callerOffset := driver.CallerAddress - prgStart
	if len(prg) > callerOffset {
		return nil, fmt.Errorf("%w: driver and music data use %d bytes, available are %d",
			compiler.ErrSongTooLarge, len(prg), callerOffset)
	}

	prg = append(prg, make([]byte, callerOffset-len(prg))...)
	prg = append(prg, driver.NESCaller(prgStart+driver.InitOffset, prgStart+driver.PlayOffset)...)

	e.logStatistics(result)
	return prg, nil
}

func (e *Exporter) logStatistics(result *compiler.Result) {
	driverSize := e.driver.Size()
	space := linearSpace - driverSize
	if result.BankSwitched {
		space = bankedSpace - driverSize
	}
	usage := float64(result.DataSize) * 100.0 / float64(space)

	e.logger.Info("Driver size", log.String("driver", e.driver.Name), log.Int("bytes", driverSize))
	e.logger.Info("Song data size",
		log.Int("bytes", result.DataSize),
		log.String("usage", fmt.Sprintf("%.1f%%", usage)))
	if result.BankSwitched {
		e.logger.Info("Bank switching used", log.Int("banks", result.LastBank))
	}
	if result.DuplicatePatterns > 0 {
		e.logger.Info("Removed duplicate patterns", log.Int("count", result.DuplicatePatterns))
	}
}

// IsSizeError returns whether the error was caused by music data that does
// not fit into the target format.
func IsSizeError(err error) bool {
	return errors.Is(err, compiler.ErrSongTooLarge) || errors.Is(err, compiler.ErrInstrumentOverflow)
}
