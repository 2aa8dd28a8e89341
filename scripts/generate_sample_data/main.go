package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"

	"churn-predictor/internal/common"
)

var (
	zones    = []string{"Norte", "Sur", "Centro"}
	payments = []string{"Efectivo", "Tarjeta", "Transferencia"}
	surnames = []string{"Perez", "Gomez", "Diaz", "Rojas", "Vera", "Castro", "Silva", "Mora"}
	names    = []string{"Ana", "Luis", "Eva", "Jorge", "Marta", "Pablo", "Rosa", "Tomas"}
)

func main() {
	var (
		output    = flag.String("output", "customers.csv", "Output CSV path")
		count     = flag.Int("count", 200, "Number of customers to generate")
		seed      = flag.Int64("seed", 1, "Random seed")
		churnRate = flag.Float64("churn-rate", 0.3, "Share of customers with a declining visit pattern")
		missing   = flag.Float64("missing", 0.02, "Share of cells left empty")
	)
	flag.Parse()

	fmt.Printf("Generating %d sample customers...\n", *count)
	fmt.Printf("  Output: %s\n", *output)
	fmt.Printf("  Churn Rate: %.2f\n", *churnRate)

	file, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	defer file.Close()

	rng := rand.New(rand.NewSource(*seed))
	writer := csv.NewWriter(file)

	header := []string{
		common.ColCustomerID, common.ColCustomerName, common.ColAge, common.ColSex,
		common.ColMonth1, common.ColMonth2, common.ColMonth3, common.ColMonth4, common.ColMonth5,
		common.ColVisitVariation, common.ColVariationPct,
		common.ColZone, common.ColPaymentMethod, common.ColSatisfaction,
	}
	if err := writer.Write(header); err != nil {
		log.Fatalf("Failed to write header: %v", err)
	}

	for i := 0; i < *count; i++ {
		record := generateCustomer(rng, i, rng.Float64() < *churnRate)
		// identifiers are never blanked
		for j := 2; j < len(record); j++ {
			if rng.Float64() < *missing {
				record[j] = ""
			}
		}
		if err := writer.Write(record); err != nil {
			log.Fatalf("Failed to write customer %d: %v", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Fatalf("Failed to flush output: %v", err)
	}
	fmt.Println("Sample data generated successfully!")
}

// generateCustomer draws five monthly visit counts. Churners lose visits month over
// month and report lower satisfaction.
func generateCustomer(rng *rand.Rand, i int, churner bool) []string {
	base := 4 + rng.Float64()*8
	slope := rng.NormFloat64() * 0.3
	satisfaction := 3 + rng.Intn(3)
	if churner {
		slope = -(0.8 + rng.Float64()*1.2)
		satisfaction = 1 + rng.Intn(3)
	}

	visits := make([]int, 5)
	for m := range visits {
		v := base + slope*float64(m) + rng.NormFloat64()*0.8
		visits[m] = int(math.Max(0, math.Round(v)))
	}

	variation := visits[4] - visits[0]
	pct := 0.0
	if visits[0] > 0 {
		pct = float64(variation) / float64(visits[0]) * 100
	}

	sex := "M"
	if rng.Intn(2) == 0 {
		sex = "F"
	}

	return []string{
		strconv.Itoa(1000 + i),
		fmt.Sprintf("%s %s", surnames[rng.Intn(len(surnames))], names[rng.Intn(len(names))]),
		strconv.Itoa(18 + rng.Intn(60)),
		sex,
		strconv.Itoa(visits[0]),
		strconv.Itoa(visits[1]),
		strconv.Itoa(visits[2]),
		strconv.Itoa(visits[3]),
		strconv.Itoa(visits[4]),
		strconv.Itoa(variation),
		strconv.FormatFloat(pct, 'f', 2, 64),
		zones[rng.Intn(len(zones))],
		payments[rng.Intn(len(payments))],
		strconv.Itoa(satisfaction),
	}
}
