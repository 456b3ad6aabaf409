package mailer

// alertTemplate renders the weekly risk report. Kept deliberately simple:
// inline styles only, no external assets, so it survives strict email
// clients.
const alertTemplate = `<!DOCTYPE html>
<html lang="pt">
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #222; max-width: 720px; margin: 0 auto;">
  <h2 style="background: #b71c1c; color: #fff; padding: 12px 16px;">Vigilância de Malária - Bié</h2>
  <p><strong>{{.Message}}</strong></p>
  <p>Semana epidemiológica: <strong>{{.Week}}</strong></p>

  <table style="border-collapse: collapse; width: 100%; margin: 12px 0;">
    <tr style="background: #f5f5f5;">
      <th style="border: 1px solid #ccc; padding: 6px; text-align: left;">Município</th>
      <th style="border: 1px solid #ccc; padding: 6px;">Classe de risco</th>
      <th style="border: 1px solid #ccc; padding: 6px;">Score</th>
    </tr>
    {{range .HighRisk}}
    <tr>
      <td style="border: 1px solid #ccc; padding: 6px;">{{.MunicipalityName}}</td>
      <td style="border: 1px solid #ccc; padding: 6px; color: #b71c1c; text-align: center;"><strong>ALTO</strong></td>
      <td style="border: 1px solid #ccc; padding: 6px; text-align: center;">{{printf "%.2f" .RiskScore}}</td>
    </tr>
    {{end}}
    {{range .MediumRisk}}
    <tr>
      <td style="border: 1px solid #ccc; padding: 6px;">{{.MunicipalityName}}</td>
      <td style="border: 1px solid #ccc; padding: 6px; color: #e65100; text-align: center;">MÉDIO</td>
      <td style="border: 1px solid #ccc; padding: 6px; text-align: center;">{{printf "%.2f" .RiskScore}}</td>
    </tr>
    {{end}}
    {{range .LowRisk}}
    <tr>
      <td style="border: 1px solid #ccc; padding: 6px;">{{.MunicipalityName}}</td>
      <td style="border: 1px solid #ccc; padding: 6px; color: #2e7d32; text-align: center;">baixo</td>
      <td style="border: 1px solid #ccc; padding: 6px; text-align: center;">{{printf "%.2f" .RiskScore}}</td>
    </tr>
    {{end}}
  </table>

  <h3>Recomendações</h3>
  <ul>
    {{range .Recommendations}}<li>{{.}}</li>
    {{end}}
  </ul>

  <p style="color: #777; font-size: 12px;">
    Gerado em {{.GeneratedAt.Format "02/01/2006 15:04"}}
    {{with .Predictions}}{{with index . 0}} · modelo {{.ModelVersion}}{{end}}{{end}}
  </p>
</body>
</html>`
